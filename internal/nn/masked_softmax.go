package nn

import (
	"github.com/born-ml/readcomp/internal/tensor"
)

// MaskLarge is subtracted from the logits at masked positions.
const MaskLarge = 1e30

// MaskedSoftmax takes a softmax over dim after driving masked positions
// (mask == 0) to a very large negative value.
//
//	maskedLogits = logits + (mask - 1) * MaskLarge
//	probDist     = softmax(maskedLogits, dim)
//
// mask holds 0/1 values and must broadcast against logits. Masked entries
// of probDist are exactly 0 whenever the axis has at least one unmasked
// entry. When every entry of the axis is masked the masked logits all
// round to -MaskLarge and the result is the uniform distribution.
//
// Negative dim counts from the end.
func MaskedSoftmax[B tensor.Backend](logits, mask *tensor.Tensor[float32, B], dim int) (maskedLogits, probDist *tensor.Tensor[float32, B]) {
	penalty := mask.AddScalar(-1).MulScalar(MaskLarge)
	maskedLogits = logits.Add(penalty)
	probDist = maskedLogits.Softmax(dim)
	return maskedLogits, probDist
}
