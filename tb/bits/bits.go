// Package bits converts between integers and bit arrays.
//
// Bit arrays hold one bit per element, LSB first unless msbFirst is set. They
// use uint64 elements so that they can be written to signals directly.
package bits

import "fmt"

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}

	return uint64(1)<<uint(width) - 1
}

// ToBitArray returns the lowest width bits of data. Each bit is repeated
// repeat times.
func ToBitArray(data uint64, width int, msbFirst bool, repeat int) []uint64 {
	if repeat < 1 {
		repeat = 1
	}

	out := make([]uint64, 0, width*repeat)

	for i := 0; i < width; i++ {
		pos := i
		if msbFirst {
			pos = width - 1 - i
		}

		bit := data >> uint(pos) & 1
		for r := 0; r < repeat; r++ {
			out = append(out, bit)
		}
	}

	return out
}

// ToInt packs a bit array into an integer. If width is larger than the array,
// the result is shifted left to fill width bits.
func ToInt(bitArray []uint64, width int, msbFirst bool) uint64 {
	n := len(bitArray)
	val := uint64(0)

	for i, bit := range bitArray {
		pos := i
		if msbFirst {
			pos = n - 1 - i
		}

		val |= (bit & 1) << uint(pos)
	}

	if width > n {
		val <<= uint(width - n)
	}

	return val
}

// ToInts packs consecutive chunks of chunkSize bits into integers. A shorter
// last chunk is padded as in ToInt. It panics if chunkSize is not positive.
func ToInts(bitArray []uint64, chunkSize int, msbFirst bool) []uint64 {
	if chunkSize <= 0 {
		panic(fmt.Sprintf("bits: chunk size %d must be positive", chunkSize))
	}

	var out []uint64

	for i := 0; i < len(bitArray); i += chunkSize {
		end := min(i+chunkSize, len(bitArray))
		out = append(out, ToInt(bitArray[i:end], chunkSize, msbFirst))
	}

	return out
}

// Split cuts data into chunkCount integers of chunkSize bits, least
// significant chunk first unless msbFirst is set.
func Split(data uint64, chunkSize, chunkCount int, msbFirst bool) []uint64 {
	out := make([]uint64, chunkCount)

	for i := range out {
		chunk := uint64(0)
		if shift := i * chunkSize; shift < 64 {
			chunk = data >> uint(shift) & mask(chunkSize)
		}

		if msbFirst {
			out[chunkCount-1-i] = chunk
		} else {
			out[i] = chunk
		}
	}

	return out
}

// ConcatInts joins chunkSize-bit integers into one integer, the inverse of
// Split.
func ConcatInts(values []uint64, chunkSize int, msbFirst bool) uint64 {
	out := uint64(0)
	n := len(values)

	for i := range values {
		v := values[i]
		if msbFirst {
			v = values[n-1-i]
		}

		if shift := i * chunkSize; shift < 64 {
			out |= (v & mask(chunkSize)) << uint(shift)
		}
	}

	return out
}
