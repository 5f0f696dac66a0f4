// Package embedding turns lecture text and prompts into fixed-length vectors.
package embedding

import "context"

// Embedder maps text to a vector. Implementations must be deterministic for a
// given model so cached vectors stay valid.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Closer is implemented by embedders holding native resources.
type Closer interface {
	Close() error
}

// meanPool averages the hidden states of the tokens whose attention mask is
// set. hidden is laid out as [seqLen][dim].
func meanPool(hidden []float32, mask []int64, seqLen, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t := 0; t < seqLen; t++ {
		if t < len(mask) && mask[t] == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for d, v := range row {
			out[d] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}

// modelInputs are the three int64 rows fed to a BERT-style encoder.
type modelInputs struct {
	ids     []int64
	mask    []int64
	typeIDs []int64
}

// buildInputs converts a tokenizer encoding into model inputs of at most max
// tokens. Truncation keeps the trailing [SEP]; padding the tokenizer added is
// dropped first so it is never kept in place of real tokens. A nil mask means
// every token is attended.
func buildInputs(ids, mask, typeIDs []int, max int) modelInputs {
	n := len(ids)
	if max > 1 && n > max {
		for n > 0 && valueAt(mask, n-1, 1) == 0 {
			n--
		}
	}

	positions := make([]int, 0, n)
	if max > 1 && n > max {
		for p := 0; p < max-1; p++ {
			positions = append(positions, p)
		}
		positions = append(positions, n-1)
	} else {
		for p := 0; p < n; p++ {
			positions = append(positions, p)
		}
	}

	in := modelInputs{
		ids:     make([]int64, len(positions)),
		mask:    make([]int64, len(positions)),
		typeIDs: make([]int64, len(positions)),
	}
	for i, p := range positions {
		in.ids[i] = int64(ids[p])
		in.mask[i] = int64(valueAt(mask, p, 1))
		in.typeIDs[i] = int64(valueAt(typeIDs, p, 0))
	}
	return in
}

func valueAt(s []int, i, def int) int {
	if i < len(s) {
		return s[i]
	}
	return def
}
