package csn

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/Davidson-Souza/floresta-go/accumulator"
	"github.com/Davidson-Souza/floresta-go/common"
)

// BestChain points at the block the node is synced to.
type BestChain struct {
	Hash   chainhash.Hash
	Height int32
}

// DiskBlockHeader is a block header plus where it sits in the chain.
type DiskBlockHeader struct {
	Header wire.BlockHeader
	Height int32
}

// ChainStore persists what the node can't rebuild on its own: the
// accumulator roots, the best tip, every accepted header, and the
// height to block hash index of the best chain.  Lookups report a
// missing record with a false bool, not an error.
type ChainStore interface {
	// SaveChainState writes the new tip, its header, its height index
	// entry and the accumulator roots in one atomic batch, so a crash
	// can't leave them out of sync.
	SaveChainState(tip DiskBlockHeader, numLeaves uint64, roots []accumulator.Hash) error

	// SaveHeader indexes a header by its block hash.
	SaveHeader(header DiskBlockHeader) error

	// GetHeader looks a header up by block hash.
	GetHeader(hash chainhash.Hash) (DiskBlockHeader, bool, error)

	// GetBlockHash returns the best chain block hash at the given
	// height.
	GetBlockHash(height int32) (chainhash.Hash, bool, error)

	// GetBestChain returns the tip the store last saved.
	GetBestChain() (BestChain, bool, error)

	// GetRoots returns the accumulator leaf count and roots.
	GetRoots() (uint64, []accumulator.Hash, bool, error)

	Close() error
}

var (
	bestChainKey = []byte("bestchain")
	rootsKey     = []byte("accroots")
)

const (
	headerKeyPrefix = byte('h')
	heightKeyPrefix = byte('i')
)

func headerKey(hash chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = headerKeyPrefix
	copy(key[1:], hash[:])
	return key
}

func heightKey(height int32) []byte {
	key := make([]byte, 5)
	key[0] = heightKeyPrefix
	binary.BigEndian.PutUint32(key[1:], uint32(height))
	return key
}

// levelDbStore is the one ChainStore we ship.  It can live on disk or,
// with an empty path, entirely in memory.
type levelDbStore struct {
	db *leveldb.DB
}

// NewChainStore opens (or creates) the chain database at path.  An
// empty path keeps everything in memory.
func NewChainStore(path string) (ChainStore, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, errStore(err)
	}
	return &levelDbStore{db: db}, nil
}

// get wraps leveldb gets so a missing key comes back as a false bool
// instead of leveldb.ErrNotFound.
func (s *levelDbStore) get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errStore(err)
	}
	return value, true, nil
}

func (s *levelDbStore) SaveChainState(
	tip DiskBlockHeader, numLeaves uint64, roots []accumulator.Hash) error {

	hash := tip.Header.BlockHash()
	headerBytes, err := serializeDiskHeader(tip)
	if err != nil {
		return errStore(err)
	}
	rootBytes, err := serializeRoots(numLeaves, roots)
	if err != nil {
		return errStore(err)
	}
	tipBytes, err := serializeBestChain(BestChain{Hash: hash, Height: tip.Height})
	if err != nil {
		return errStore(err)
	}

	batch := new(leveldb.Batch)
	batch.Put(headerKey(hash), headerBytes)
	batch.Put(heightKey(tip.Height), hash[:])
	batch.Put(rootsKey, rootBytes)
	batch.Put(bestChainKey, tipBytes)
	err = s.db.Write(batch, nil)
	if err != nil {
		return errStore(err)
	}
	return nil
}

func (s *levelDbStore) SaveHeader(header DiskBlockHeader) error {
	headerBytes, err := serializeDiskHeader(header)
	if err != nil {
		return errStore(err)
	}
	err = s.db.Put(headerKey(header.Header.BlockHash()), headerBytes, nil)
	if err != nil {
		return errStore(err)
	}
	return nil
}

func (s *levelDbStore) GetHeader(hash chainhash.Hash) (DiskBlockHeader, bool, error) {
	value, ok, err := s.get(headerKey(hash))
	if err != nil || !ok {
		return DiskBlockHeader{}, false, err
	}
	header, err := deserializeDiskHeader(value)
	if err != nil {
		return DiskBlockHeader{}, false, errStore(err)
	}
	return header, true, nil
}

func (s *levelDbStore) GetBlockHash(height int32) (chainhash.Hash, bool, error) {
	var hash chainhash.Hash
	value, ok, err := s.get(heightKey(height))
	if err != nil || !ok {
		return hash, false, err
	}
	if len(value) != chainhash.HashSize {
		return hash, false, errStore(
			fmt.Errorf("height index entry is %d bytes, want %d",
				len(value), chainhash.HashSize))
	}
	copy(hash[:], value)
	return hash, true, nil
}

func (s *levelDbStore) GetBestChain() (BestChain, bool, error) {
	value, ok, err := s.get(bestChainKey)
	if err != nil || !ok {
		return BestChain{}, false, err
	}
	tip, err := deserializeBestChain(value)
	if err != nil {
		return BestChain{}, false, errStore(err)
	}
	return tip, true, nil
}

func (s *levelDbStore) GetRoots() (uint64, []accumulator.Hash, bool, error) {
	value, ok, err := s.get(rootsKey)
	if err != nil || !ok {
		return 0, nil, false, err
	}
	numLeaves, roots, err := deserializeRoots(value)
	if err != nil {
		return 0, nil, false, errStore(err)
	}
	return numLeaves, roots, true, nil
}

func (s *levelDbStore) Close() error {
	return s.db.Close()
}

// Record layouts.  Everything fixed width and big endian.

// serializeDiskHeader writes the 80 byte wire header followed by the
// height.
func serializeDiskHeader(header DiskBlockHeader) ([]byte, error) {
	var buf bytes.Buffer
	err := header.Header.Serialize(&buf)
	if err != nil {
		return nil, err
	}
	freeBytes := common.NewFreeBytes()
	defer freeBytes.Free()
	err = freeBytes.PutUint32(&buf, binary.BigEndian, uint32(header.Height))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeDiskHeader(b []byte) (DiskBlockHeader, error) {
	var header DiskBlockHeader
	r := bytes.NewReader(b)
	err := header.Header.Deserialize(r)
	if err != nil {
		return header, err
	}
	freeBytes := common.NewFreeBytes()
	defer freeBytes.Free()
	height, err := freeBytes.Uint32(r, binary.BigEndian)
	if err != nil {
		return header, err
	}
	header.Height = int32(height)
	return header, nil
}

func serializeBestChain(tip BestChain) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.Write(tip.Hash[:])
	if err != nil {
		return nil, err
	}
	freeBytes := common.NewFreeBytes()
	defer freeBytes.Free()
	err = freeBytes.PutUint32(&buf, binary.BigEndian, uint32(tip.Height))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeBestChain(b []byte) (BestChain, error) {
	var tip BestChain
	r := bytes.NewReader(b)
	_, err := io.ReadFull(r, tip.Hash[:])
	if err != nil {
		return tip, err
	}
	freeBytes := common.NewFreeBytes()
	defer freeBytes.Free()
	height, err := freeBytes.Uint32(r, binary.BigEndian)
	if err != nil {
		return tip, err
	}
	tip.Height = int32(height)
	return tip, nil
}

// serializeRoots writes the leaf count, a one byte root count, then the
// roots themselves.  255 roots covers any forest that fits in a uint64
// leaf count.
func serializeRoots(numLeaves uint64, roots []accumulator.Hash) ([]byte, error) {
	var buf bytes.Buffer
	freeBytes := common.NewFreeBytes()
	defer freeBytes.Free()
	err := freeBytes.PutUint64(&buf, binary.BigEndian, numLeaves)
	if err != nil {
		return nil, err
	}
	err = freeBytes.PutUint8(&buf, uint8(len(roots)))
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		_, err = buf.Write(root[:])
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func deserializeRoots(b []byte) (uint64, []accumulator.Hash, error) {
	r := bytes.NewReader(b)
	freeBytes := common.NewFreeBytes()
	defer freeBytes.Free()
	numLeaves, err := freeBytes.Uint64(r, binary.BigEndian)
	if err != nil {
		return 0, nil, err
	}
	numRoots, err := freeBytes.Uint8(r)
	if err != nil {
		return 0, nil, err
	}
	roots := make([]accumulator.Hash, numRoots)
	for i := range roots {
		_, err = io.ReadFull(r, roots[i][:])
		if err != nil {
			return 0, nil, err
		}
	}
	return numLeaves, roots, nil
}
