package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/readcomp/internal/tensor"
)

// File is the decoded content of a SafeTensors file.
type File struct {
	Tensors  map[string]*tensor.RawTensor
	Metadata map[string]string
}

// ReaderOptions configures decoding.
type ReaderOptions struct {
	ValidationLevel ValidationLevel
}

// ReadSafeTensors reads a SafeTensors file with strict validation.
func ReadSafeTensors(path string) (*File, error) {
	return ReadSafeTensorsWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// ReadSafeTensorsWithOptions reads a SafeTensors file with custom options.
func ReadSafeTensorsWithOptions(path string, opts ReaderOptions) (*File, error) {
	//nolint:gosec // G304: path comes from the caller, as expected for checkpoint loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	f, err := Decode(bufio.NewReader(file), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode reads SafeTensors content from r.
func Decode(r io.Reader, opts ReaderOptions) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	metadata := map[string]string{}
	if raw, ok := entries[metadataKey]; ok {
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidHeader, err)
		}
		delete(entries, metadataKey)
	}

	headers := make(map[string]SafeTensorHeader, len(entries))
	metas := make([]TensorMeta, 0, len(entries))
	for name, raw := range entries {
		var h SafeTensorHeader
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalidHeader, name, err)
		}
		if opts.ValidationLevel != ValidationNone {
			if err := ValidateTensorName(name); err != nil {
				return nil, err
			}
		}
		headers[name] = h
		metas = append(metas, TensorMeta{
			Name:   name,
			Offset: h.DataOffsets[0],
			Size:   h.DataOffsets[1] - h.DataOffsets[0],
		})
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if opts.ValidationLevel != ValidationNone {
		if err := ValidateTensorOffsets(metas, int64(len(data))); err != nil {
			return nil, err
		}
	}
	if sum, ok := metadata[ChecksumKey]; ok && opts.ValidationLevel == ValidationStrict {
		if err := ValidateChecksum(data, sum); err != nil {
			return nil, err
		}
	}

	tensors := make(map[string]*tensor.RawTensor, len(headers))
	for name, h := range headers {
		raw, err := decodeTensor(name, h, data)
		if err != nil {
			return nil, err
		}
		tensors[name] = raw
	}

	return &File{Tensors: tensors, Metadata: metadata}, nil
}

func decodeTensor(name string, h SafeTensorHeader, data []byte) (*tensor.RawTensor, error) {
	dtype, err := dtypeFromSafeTensors(h.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	shape := make(tensor.Shape, len(h.Shape))
	for i, dim := range h.Shape {
		shape[i] = int(dim)
	}
	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	start, end := h.DataOffsets[0], h.DataOffsets[1]
	if start < 0 || end < start || end > int64(len(data)) || end-start != int64(raw.ByteSize()) {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Tensor:  name,
			Details: fmt.Sprintf("shape %v needs %d bytes, data_offsets give [%d, %d)", shape, raw.ByteSize(), start, end),
		}
	}
	buf := data[start:end]

	switch dtype {
	case tensor.Float32:
		out := raw.AsFloat32()
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
	case tensor.Float64:
		out := raw.AsFloat64()
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
	}
	return raw, nil
}
