// Package all registers every engine shipped with kvgate. Import it for
// its side effects.
package all

import (
	_ "github.com/myuser/kvgate/internal/storage/badger"
	_ "github.com/myuser/kvgate/internal/storage/blackhole"
	_ "github.com/myuser/kvgate/internal/storage/bolt"
	_ "github.com/myuser/kvgate/internal/storage/btree"
	_ "github.com/myuser/kvgate/internal/storage/leveldb"
	_ "github.com/myuser/kvgate/internal/storage/lru"
	_ "github.com/myuser/kvgate/internal/storage/pebble"
	_ "github.com/myuser/kvgate/internal/storage/pogreb"
)
