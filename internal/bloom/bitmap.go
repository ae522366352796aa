package bloom

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/demdxx/gocast"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

var (
	//go:embed scripts/bloom_reserve.lua
	reserveSrc string

	//go:embed scripts/bloom_add.lua
	addSrc string

	//go:embed scripts/bloom_exists.lua
	existsSrc string

	reserveScript = redis.NewScript(reserveSrc)
	addScript     = redis.NewScript(addSrc)
	existsScript  = redis.NewScript(existsSrc)
)

// ErrParamsMismatch reports a bitmap built with a different capacity or error rate.
// Its members would hash to other offsets and read as absent.
var ErrParamsMismatch = errors.New("filter sizing differs from the stored bitmap")

// Bitmap is a filter kept in a plain Redis string used as a bitmap, for Redis
// servers without the RedisBloom module. Offsets are computed here and the bits
// are set or tested atomically by Lua scripts.
type Bitmap struct {
	client redis.Scripter
	key    string
	m      uint64
	k      uint32
}

// NewBitmap creates a bitmap filter stored under key.
func NewBitmap(client redis.Scripter, key string, params Params) (*Bitmap, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	m := params.Bits()
	if m > maxBitmapBits {
		return nil, fmt.Errorf("%w: %d bits exceed the redis bitmap limit", errInvalidParams, m)
	}

	return &Bitmap{client: client, key: key, m: m, k: params.Hashes()}, nil
}

// Reserve allocates the bitmap unless the key already exists, and records its
// sizing under "<key>:params". Reserving an existing bitmap with another sizing
// fails with ErrParamsMismatch.
func (f *Bitmap) Reserve(ctx context.Context) error {
	keys := []string{f.key, f.paramsKey()}

	resp, err := reserveScript.Run(ctx, f.client, keys, f.m-1, f.m, f.k).Slice()
	if err != nil {
		return fmt.Errorf("reserve filter %s: %w", f.key, err)
	}

	if len(resp) != 2 {
		return fmt.Errorf("reserve filter %s: unexpected reply %v", f.key, resp)
	}

	bits, _ := strconv.ParseUint(gocast.ToString(resp[0]), 10, 64)
	hashes, _ := strconv.ParseUint(gocast.ToString(resp[1]), 10, 32)

	if bits != f.m || uint32(hashes) != f.k {
		return fmt.Errorf("%w: %s has m=%d k=%d, configured m=%d k=%d",
			ErrParamsMismatch, f.key, bits, hashes, f.m, f.k)
	}

	return nil
}

func (f *Bitmap) paramsKey() string {
	return f.key + ":params"
}

func (f *Bitmap) Add(ctx context.Context, code shortener.Code) error {
	return addScript.Run(ctx, f.client, []string{f.key}, f.args(code)...).Err()
}

func (f *Bitmap) MightContain(ctx context.Context, code shortener.Code) (bool, error) {
	resp, err := existsScript.Run(ctx, f.client, []string{f.key}, f.args(code)...).Result()
	if err != nil {
		return false, err
	}

	return gocast.ToInt(resp) == 1, nil
}

func (f *Bitmap) args(code shortener.Code) []any {
	locs := locations(string(code), f.m, f.k)

	args := make([]any, len(locs))
	for i, loc := range locs {
		args[i] = loc
	}

	return args
}

var _ shortener.Filter = (*Bitmap)(nil)
