package runner

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	NameLength = 35
)

// Record is the person payload sent to the target.
type Record struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Pool is a fixed set of records, read-only once generated.
type Pool struct {
	records []Record
}

// GeneratePool builds size records. delay throttles generation per record
// and is normally zero.
func GeneratePool(size int, delay time.Duration) *Pool {
	if size < 0 {
		size = 0
	}
	p := &Pool{records: make([]Record, size)}
	for i := range p.records {
		p.records[i] = NewRecord()
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return p
}

// NewPool wraps existing records.
func NewPool(records []Record) *Pool {
	return &Pool{records: records}
}

func NewRecord() Record {
	return Record{
		FirstName: RandomString(Alphabet, NameLength),
		LastName:  RandomString(Alphabet, NameLength),
		Email:     uuid.New().String(),
	}
}

func (p *Pool) Len() int {
	return len(p.records)
}

func (p *Pool) At(i int) Record {
	return p.records[i]
}

// Pick returns a uniformly random record. Safe for concurrent use.
func (p *Pool) Pick() Record {
	return p.records[rand.IntN(len(p.records))]
}

// RandomString draws length characters from alphabet. Degenerate input
// yields an empty string.
func RandomString(alphabet string, length int) string {
	if len(alphabet) == 0 || length <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}
