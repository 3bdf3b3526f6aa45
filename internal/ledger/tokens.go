package ledger

import "github.com/pkoukk/tiktoken-go"

// TokenCounter estimates how many model tokens a piece of content costs.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates tokens as one per four characters. It is
// the default: no encoding tables, no network, close enough for budget
// accounting.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// TiktokenCounter counts with a real BPE encoding. Falls back to the
// heuristic when the encoding is unavailable.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, cl100k_base when empty.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if c == nil || c.enc == nil {
		return HeuristicCounter{}.Count(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}
