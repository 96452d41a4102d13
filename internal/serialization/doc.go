// Package serialization reads and writes layer weights in the SafeTensors
// format.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes, tensors in name order]
//
// The optional "__metadata__" header entry holds string key/value pairs.
// Files written by this package record a SHA-256 checksum of the data
// section there, which the reader verifies when present.
//
// Example usage:
//
//	err := serialization.WriteSafeTensors("reader.safetensors", layer.StateDict(), map[string]string{
//	    "hidden_size": "64",
//	})
//
//	file, err := serialization.ReadSafeTensors("reader.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = layer.LoadStateDict(file.Tensors)
package serialization
