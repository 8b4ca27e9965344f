package pipeline

import (
	"github.com/sourcegraph/conc/pool"

	"github.com/ZanzyTHEbar/text-inference/tinfer/common"
	"github.com/ZanzyTHEbar/text-inference/tinfer/decode"
)

// Sharded fans work out across independently constructed predictors, each
// bound to its own engine (typically one per device). A single predictor is
// never invoked concurrently; parallelism comes only from sharding the input
// set across handles, and output order matches input order.
type Sharded struct {
	predictors []*Predictor
}

// NewSharded wraps one predictor per shard.
func NewSharded(predictors ...*Predictor) (*Sharded, error) {
	if len(predictors) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "sharded: no predictors")
	}
	for _, p := range predictors {
		if p == nil {
			return nil, common.Wrapf(common.ErrInvalidInput, "sharded: nil predictor")
		}
	}
	return &Sharded{predictors: predictors}, nil
}

// PredictLabels splits texts into contiguous shards, classifies each shard on
// its own predictor, and concatenates results in input order.
func (s *Sharded) PredictLabels(texts, pairs []string, labels map[int]string) ([]decode.Prediction, error) {
	if len(texts) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "sharded: no texts")
	}
	if pairs != nil && len(pairs) != len(texts) {
		return nil, errPairCount(len(pairs), len(texts))
	}
	shards := chunkRanges(len(texts), shardSize(len(texts), len(s.predictors)))
	results := make([][]decode.Prediction, len(shards))

	p := pool.New().WithErrors()
	for i, r := range shards {
		i, r := i, r
		pred := s.predictors[i%len(s.predictors)]
		p.Go(func() error {
			var shardPairs []string
			if pairs != nil {
				shardPairs = pairs[r[0]:r[1]]
			}
			preds, err := pred.PredictLabels(texts[r[0]:r[1]], shardPairs, labels)
			if err != nil {
				return err
			}
			results[i] = preds
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	out := make([]decode.Prediction, 0, len(texts))
	for _, preds := range results {
		out = append(out, preds...)
	}
	return out, nil
}

// GenerateText splits texts into contiguous shards, generates on each shard's
// predictor, and concatenates results in input order.
func (s *Sharded) GenerateText(texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, common.Wrapf(common.ErrInvalidInput, "sharded: no texts")
	}
	shards := chunkRanges(len(texts), shardSize(len(texts), len(s.predictors)))
	results := make([][]string, len(shards))

	p := pool.New().WithErrors()
	for i, r := range shards {
		i, r := i, r
		pred := s.predictors[i%len(s.predictors)]
		p.Go(func() error {
			decoded, err := pred.GenerateText(texts[r[0]:r[1]])
			if err != nil {
				return err
			}
			results[i] = decoded
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(texts))
	for _, decoded := range results {
		out = append(out, decoded...)
	}
	return out, nil
}

// Close releases every underlying predictor, returning the first error.
func (s *Sharded) Close() error {
	var first error
	for _, p := range s.predictors {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// shardSize yields one contiguous shard per predictor, the last one ragged.
func shardSize(n, shards int) int {
	size := (n + shards - 1) / shards
	if size < 1 {
		size = 1
	}
	return size
}
