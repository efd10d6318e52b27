package redis

import (
	"context"
	"hash/crc32"
	"hash/fnv"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

const (
	KeyImageBloom = "bloom:image:ids"

	DefaultBloomHashes = 3
	maxBloomHashes     = 16
	bloomPipelineIDs   = 500
)

// imageBloom is a bitmap of image IDs kept in a single Redis string.
// It only ever gains bits, so a miss can mean the filter was built or
// updated after the image was stored; callers confirm misses with the store.
type imageBloom struct {
	client *redis.Client
	bits   uint64
	hashes int
}

var _ domain.BloomRepository = (*imageBloom)(nil)

// NewImageBloom sizes the filter to bits positions and hashes positions per ID.
// Out of range values fall back to one bit and DefaultBloomHashes.
func NewImageBloom(client *redis.Client, bits uint64, hashes int) *imageBloom {
	if bits == 0 {
		bits = 1
	}
	if hashes <= 0 || hashes > maxBloomHashes {
		hashes = DefaultBloomHashes
	}
	return &imageBloom{
		client: client,
		bits:   bits,
		hashes: hashes,
	}
}

func (b *imageBloom) Add(ctx context.Context, id int64) error {
	return b.BulkAdd(ctx, []int64{id})
}

// BulkAdd sets the bits of ids, one pipeline per bloomPipelineIDs IDs.
func (b *imageBloom) BulkAdd(ctx context.Context, ids []int64) error {
	for len(ids) > 0 {
		n := min(len(ids), bloomPipelineIDs)
		pipe := b.client.Pipeline()
		for _, id := range ids[:n] {
			for _, off := range b.offsets(id) {
				pipe.SetBit(ctx, KeyImageBloom, off, 1)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		ids = ids[n:]
	}
	return nil
}

func (b *imageBloom) Exists(ctx context.Context, id int64) (bool, error) {
	pipe := b.client.Pipeline()
	cmds := make([]*redis.IntCmd, 0, b.hashes)
	for _, off := range b.offsets(id) {
		cmds = append(cmds, pipe.GetBit(ctx, KeyImageBloom, off))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false, nil
		}
	}
	return true, nil
}

// offsets derives the bit positions of id from two base hashes
// (g_i = h1 + i*h2), so any hash count costs two hash computations.
func (b *imageBloom) offsets(id int64) []int64 {
	data := strconv.AppendInt(nil, id, 10)

	h1 := uint64(crc32.ChecksumIEEE(data))
	f := fnv.New64a()
	_, _ = f.Write(data)
	h2 := f.Sum64() | 1

	res := make([]int64, b.hashes)
	for i := range res {
		res[i] = int64((h1 + uint64(i)*h2) % b.bits)
	}
	return res
}
