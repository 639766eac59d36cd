// Package split partitions documents into train, dev and test sets whose shares of the
// entities approximate target ratios.
//
// The documents are shuffled once with a seeded generator and then assigned greedily: each
// document goes to dev until dev's share of the entities reaches its target, then to test
// until test's does, and the remainder goes to train. Small partitions are saturated first,
// so train absorbs any rounding surplus. A document with many entities may overshoot a target:
// nothing is rebalanced afterwards.
package split

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/gomlx/nerprep/corpus"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Partition names.
const (
	Train = "train"
	Dev   = "dev"
	Test  = "test"
)

// DefaultSeed seeds the shuffle. It is fixed so repeated runs yield the same partitions.
const DefaultSeed uint64 = 42

// Options configures Split.
type Options struct {
	// DevRatio and TestRatio are the target shares of the entities for dev and test, in (0, 1).
	// Their sum is expected to be below 1, otherwise train may end up empty.
	DevRatio, TestRatio float64

	// Seed of the shuffle.
	Seed uint64
}

// DefaultOptions returns Options with the given ratios and DefaultSeed.
func DefaultOptions(devRatio, testRatio float64) Options {
	return Options{DevRatio: devRatio, TestRatio: testRatio, Seed: DefaultSeed}
}

// Partition is one of the output sets.
type Partition struct {
	Name      string
	Documents []*corpus.Document

	// Entities is the number of entities in Documents.
	Entities int

	// Ratio is Entities over the total number of entities passed to Split, 0 if that is 0.
	Ratio float64
}

// NumDocuments returns the number of documents in the partition.
func (p *Partition) NumDocuments() int {
	return len(p.Documents)
}

// add assigns doc to the partition and updates its running ratio.
func (p *Partition) add(doc *corpus.Document, totalEntities int) {
	p.Documents = append(p.Documents, doc)
	p.Entities += doc.NumEntities()
	if totalEntities > 0 {
		p.Ratio = float64(p.Entities) / float64(totalEntities)
	}
}

// Result holds the three partitions.
type Result struct {
	Train, Dev, Test Partition
}

// Partitions returns pointers to the partitions in train, dev, test order.
func (r *Result) Partitions() []*Partition {
	return []*Partition{&r.Train, &r.Dev, &r.Test}
}

// Total returns the number of entities across the partitions.
func (r *Result) Total() int {
	return r.Train.Entities + r.Dev.Entities + r.Test.Entities
}

// NumDocuments returns the number of documents across the partitions.
func (r *Result) NumDocuments() int {
	return r.Train.NumDocuments() + r.Dev.NumDocuments() + r.Test.NumDocuments()
}

// EmptyPartitionError is returned by Split when some partition received no documents.
// This is a configuration problem: too few documents for the requested ratios.
type EmptyPartitionError struct {
	// Empty lists the empty partitions, in train, dev, test order.
	Empty []string

	// Train, Dev and Test are the number of documents assigned to each partition.
	Train, Dev, Test int
}

// Error implements error.
func (e *EmptyPartitionError) Error() string {
	return fmt.Sprintf("empty partitions (%s): train: %d, test: %d, dev: %d",
		strings.Join(e.Empty, ", "), e.Train, e.Test, e.Dev)
}

// Permutation returns a permutation of [0, n): a Fisher-Yates shuffle of the identity driven
// by a PCG generator seeded with (seed, seed). The same n and seed always yield the same
// permutation, across Go releases too: only the PCG output stream is relied upon, which
// math/rand/v2 guarantees, not the shuffling algorithm of rand.Perm.
func Permutation(n int, seed uint64) []int {
	pcg := rand.NewPCG(seed, seed)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(pcg.Uint64() % uint64(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// Split shuffles docs and assigns each to train, dev or test, see package documentation.
//
// totalEntities is the number of entities across docs, used as the denominator of the ratios.
// If it is 0 the ratios never grow and every document goes to dev. docs itself is not modified.
//
// It returns an *EmptyPartitionError if any partition ends up without documents.
func Split(docs []*corpus.Document, totalEntities int, opts Options) (*Result, error) {
	result := &Result{
		Train: Partition{Name: Train, Documents: make([]*corpus.Document, 0)},
		Dev:   Partition{Name: Dev, Documents: make([]*corpus.Document, 0)},
		Test:  Partition{Name: Test, Documents: make([]*corpus.Document, 0)},
	}
	for _, idx := range Permutation(len(docs), opts.Seed) {
		doc := docs[idx]
		switch {
		case result.Dev.Ratio < opts.DevRatio:
			result.Dev.add(doc, totalEntities)
		case result.Test.Ratio < opts.TestRatio:
			result.Test.add(doc, totalEntities)
		default:
			result.Train.add(doc, totalEntities)
		}
	}
	for _, p := range result.Partitions() {
		klog.V(1).Infof("partition %s: %d documents, %d entities (%.1f%%)", p.Name, p.NumDocuments(), p.Entities, 100*p.Ratio)
	}

	var empty []string
	for _, p := range result.Partitions() {
		if p.NumDocuments() == 0 {
			empty = append(empty, p.Name)
		}
	}
	if len(empty) > 0 {
		return nil, errors.WithStack(&EmptyPartitionError{
			Empty: empty,
			Train: result.Train.NumDocuments(),
			Dev:   result.Dev.NumDocuments(),
			Test:  result.Test.NumDocuments(),
		})
	}
	return result, nil
}
