// Package serialization stores rectflow model state as SafeTensors files.
//
// Layout:
//
//	[8 bytes: header size, uint64 little-endian]
//	[header: JSON object, name -> {dtype, shape, data_offsets}, plus "__metadata__"]
//	[data: tensors in name order, contiguous]
//
// Parameters are written as F64. The metadata always carries a SHA-256 of
// the data section under MetadataChecksum, verified on read.
//
// Example:
//
//	err := serialization.WriteSafeTensors("model.safetensors", nn.StateDict(model), meta)
//	ckpt, err := serialization.ReadSafeTensors("model.safetensors")
//	err = nn.LoadStateDict(model, ckpt.Tensors)
package serialization
