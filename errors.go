package olympe

import (
	"errors"
	"fmt"
)

// Sentinel errors for the content and ECS layers. Callers branch with
// errors.Is; messages carry the offending path or id.
var (
	// ErrInvalidEntity reports an operation on an entity that does not exist.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrAssetNotFound reports a missing texture, tileset, prefab, or tree
	// asset. Most call sites substitute a placeholder instead of failing.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrMalformedContent reports a JSON/XML parse failure or schema
	// violation. The single asset load aborts without partial mutation.
	ErrMalformedContent = errors.New("malformed content")

	// ErrDecode reports a corrupt base64/gzip/zlib tile payload or a data
	// size mismatch. The map load aborts.
	ErrDecode = errors.New("decode error")

	// ErrCircularReference reports a tileset reference cycle.
	ErrCircularReference = errors.New("circular tileset reference")

	// ErrVersionMismatch reports an asset schema_version newer than this
	// engine supports.
	ErrVersionMismatch = errors.New("unsupported schema version")
)

func errInvalidEntityOp(op string, e Entity) error {
	return fmt.Errorf("%s on entity %d: %w", op, e, ErrInvalidEntity)
}
