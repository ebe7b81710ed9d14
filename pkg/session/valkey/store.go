package sessionvalkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/postboard/internal/serviceerr"
)

// store keeps JSON encoded objects under "<prefix>:<type>:<id>" keys.
type store struct {
	valkey valkey.Client
	prefix string
}

func newStore(valkeyClient valkey.Client, prefix string) *store {
	return &store{
		valkey: valkeyClient,
		prefix: strings.TrimSuffix(prefix, ":"),
	}
}

func (s *store) Get(ctx context.Context, objectType, id string, decodeInto any) error {
	return s.get(ctx, s.key(objectType, id), decodeInto)
}

func (s *store) Set(ctx context.Context, objectType, id string, val any) error {
	bytes, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	cmd := s.valkey.B().Set().Key(s.key(objectType, id)).Value(valkey.BinaryString(bytes)).Build()
	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

// Destroy deletes the object and reports serviceerr.ErrNotFound when there
// was nothing to delete.
func (s *store) Destroy(ctx context.Context, objectType, id string) error {
	deleted, err := s.valkey.Do(ctx, s.valkey.B().Del().Key(s.key(objectType, id)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	if deleted == 0 {
		return serviceerr.ErrNotFound
	}

	return nil
}

func (s *store) get(ctx context.Context, key string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkeyErr, ok := valkey.IsValkeyErr(err); ok && valkeyErr.IsNil() {
			return serviceerr.ErrNotFound
		}

		return fmt.Errorf("executing get command: %w", err)
	}

	if err := json.Unmarshal(bytes, decodeInto); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}

func (s *store) key(objectType, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, id)
}

// scanObjects decodes every object of the given type. Keys deleted between
// the scan and the read are skipped.
func scanObjects[T any](ctx context.Context, s *store, objectType string) ([]T, error) {
	match := s.key(objectType, "*")

	var objects []T
	var cursor uint64
	for {
		scan, err := s.valkey.Do(ctx, s.valkey.B().Scan().Cursor(cursor).Match(match).Count(100).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("executing scan command: %w", err)
		}

		objects = slices.Grow(objects, len(scan.Elements))
		for _, key := range scan.Elements {
			var decoded T
			err := s.get(ctx, key, &decoded)
			if errors.Is(err, serviceerr.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting an element: %w", err)
			}

			objects = append(objects, decoded)
		}

		cursor = scan.Cursor
		if cursor == 0 {
			return objects, nil
		}
	}
}
