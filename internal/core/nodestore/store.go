package nodestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/util/logger"
	"github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

var log = logger.Logger("nodestore")

const (
	keyPrefix = "node/"

	// maxAddresses 每个节点保留的历史地址数
	maxAddresses = 8

	gcInterval     = 10 * time.Minute
	gcDiscardRatio = 0.5
)

// Store 基于 BadgerDB 的已知节点存储
type Store struct {
	db    *badger.DB
	cache *lru.Cache[string, types.NodeRecord]
	now   func() time.Time

	// mu 串行化读改写
	mu     sync.Mutex
	closed atomic.Bool

	gcStop chan struct{}
	gcWg   sync.WaitGroup
}

var _ interfaces.NodeStore = (*Store)(nil)

// Open 按配置打开存储
func Open(cfg config.StorageConfig) (*Store, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := buildOptions(cfg)
	if !cfg.InMemory {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("nodestore: create dir: %w", err)
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("nodestore: open badger: %w", err)
	}

	cache, err := lru.New[string, types.NodeRecord](cfg.CacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("nodestore: create cache: %w", err)
	}

	s := &Store{
		db:     db,
		cache:  cache,
		now:    time.Now,
		gcStop: make(chan struct{}),
	}
	if !cfg.InMemory {
		s.startGC()
	}

	log.Debug("节点存储已打开", "dir", cfg.Dir, "inMemory", cfg.InMemory)
	return s, nil
}

func buildOptions(cfg config.StorageConfig) badger.Options {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	return opts.
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
}

// startGC 周期回收 value log
func (s *Store) startGC() {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for s.db.RunValueLogGC(gcDiscardRatio) == nil {
				}
			}
		}
	}()
}

func recordKey(pubKey string) []byte {
	return []byte(keyPrefix + pubKey)
}

// Get 读取节点记录
func (s *Store) Get(_ context.Context, pubKey string) (types.NodeRecord, error) {
	if s.closed.Load() {
		return types.NodeRecord{}, ErrClosed
	}
	if pubKey == "" {
		return types.NodeRecord{}, ErrEmptyPubKey
	}
	return s.load(pubKey)
}

func (s *Store) load(pubKey string) (types.NodeRecord, error) {
	if rec, ok := s.cache.Get(pubKey); ok {
		return cloneRecord(rec), nil
	}

	var rec types.NodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(pubKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.NodeRecord{}, fmt.Errorf("%w: %s", types.ErrNotFound, pubKey)
	}
	if err != nil {
		return types.NodeRecord{}, fmt.Errorf("nodestore: get %s: %w", pubKey, err)
	}

	s.cache.Add(pubKey, rec)
	return cloneRecord(rec), nil
}

// List 列出全部节点记录，按公钥排序
func (s *Store) List(_ context.Context) ([]types.NodeRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []types.NodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec types.NodeRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("nodestore: list: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PubKey < out[j].PubKey })
	return out, nil
}

// Upsert 记录一次成功连接
//
// 非零地址被放到地址列表最前面并去重，零地址只刷新 LastConnected。
func (s *Store) Upsert(_ context.Context, pubKey string, addr types.PeerAddress) error {
	return s.update(pubKey, func(rec *types.NodeRecord) {
		rec.LastConnected = s.now()
		if addr.IsZero() {
			return
		}
		addrs := make([]types.PeerAddress, 0, len(rec.Addresses)+1)
		addrs = append(addrs, addr)
		for _, a := range rec.Addresses {
			if a != addr {
				addrs = append(addrs, a)
			}
		}
		if len(addrs) > maxAddresses {
			addrs = addrs[:maxAddresses]
		}
		rec.Addresses = addrs
	})
}

// RecordDisconnect 记录最近一次断开原因
func (s *Store) RecordDisconnect(_ context.Context, pubKey string, reason types.DisconnectReason) error {
	return s.update(pubKey, func(rec *types.NodeRecord) {
		rec.LastDisconnectReason = reason
	})
}

// SetBanned 设置封禁状态，未知节点会新建记录
func (s *Store) SetBanned(_ context.Context, pubKey string, banned bool) error {
	return s.update(pubKey, func(rec *types.NodeRecord) {
		rec.Banned = banned
	})
}

// IsBanned 是否被封禁
func (s *Store) IsBanned(_ context.Context, pubKey string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	if pubKey == "" {
		return false, ErrEmptyPubKey
	}
	rec, err := s.load(pubKey)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Banned, nil
}

func (s *Store) update(pubKey string, mutate func(*types.NodeRecord)) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if pubKey == "" {
		return ErrEmptyPubKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(pubKey)
	switch {
	case errors.Is(err, types.ErrNotFound):
		rec = types.NodeRecord{PubKey: pubKey}
	case err != nil:
		return err
	}
	mutate(&rec)

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("nodestore: encode %s: %w", pubKey, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(pubKey), val)
	}); err != nil {
		s.cache.Remove(pubKey)
		return fmt.Errorf("nodestore: put %s: %w", pubKey, err)
	}
	s.cache.Add(pubKey, rec)
	return nil
}

// Close 关闭存储，可重复调用
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.gcStop)
	s.gcWg.Wait()
	s.cache.Purge()
	return s.db.Close()
}

func cloneRecord(rec types.NodeRecord) types.NodeRecord {
	if rec.Addresses != nil {
		rec.Addresses = append([]types.PeerAddress(nil), rec.Addresses...)
	}
	return rec
}
