package balancer

import (
	"fmt"
	"hash/crc32"
	"sort"
	"sync"

	"gateway/internal/rpc"
)

// HashFunc hashes a byte slice to a ring position.
type HashFunc func(data []byte) uint32

// DefaultHashFunc uses CRC32 for ring placement.
func DefaultHashFunc(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ConsistentHash routes the same request key to the same resource as long
// as that resource stays in the candidate set, and only reshuffles the
// keys owned by a resource that joins or leaves.
type ConsistentHash struct {
	mu       sync.Mutex
	replicas int
	hashFunc HashFunc

	built        bool
	lastKeys     map[string]struct{}
	ring         map[uint32]string
	sortedHashes []uint32
	byKey        map[string]rpc.Resource
}

// NewConsistentHash returns a ConsistentHash balancer with replicas virtual
// nodes per resource (150 if replicas <= 0) and hashFunc (DefaultHashFunc
// if nil).
func NewConsistentHash(replicas int, hashFunc HashFunc) *ConsistentHash {
	if replicas <= 0 {
		replicas = 150
	}
	if hashFunc == nil {
		hashFunc = DefaultHashFunc
	}
	return &ConsistentHash{replicas: replicas, hashFunc: hashFunc}
}

// Select returns the resource owning key's position on the ring, rebuilding
// the ring first if the candidate set changed since the last Select.
func (b *ConsistentHash) Select(key string, resources []rpc.Resource) (*rpc.Resource, error) {
	if len(resources) == 0 {
		return nil, rpc.Info("no resources available")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.changed(resources) {
		b.rebuild(resources)
	}
	if len(b.sortedHashes) == 0 {
		return nil, rpc.Info("no resources available")
	}

	hash := b.hashFunc([]byte(key))
	idx := sort.Search(len(b.sortedHashes), func(i int) bool {
		return b.sortedHashes[i] >= hash
	})
	if idx == len(b.sortedHashes) {
		idx = 0
	}

	resourceKey := b.ring[b.sortedHashes[idx]]
	resource := b.byKey[resourceKey]
	return &resource, nil
}

func (b *ConsistentHash) changed(resources []rpc.Resource) bool {
	if !b.built || len(resources) != len(b.lastKeys) {
		return true
	}
	for _, r := range resources {
		if _, ok := b.lastKeys[r.Key()]; !ok {
			return true
		}
	}
	return false
}

func (b *ConsistentHash) rebuild(resources []rpc.Resource) {
	b.ring = make(map[uint32]string)
	b.byKey = make(map[string]rpc.Resource, len(resources))
	b.lastKeys = make(map[string]struct{}, len(resources))

	for _, r := range resources {
		b.byKey[r.Key()] = r
		b.lastKeys[r.Key()] = struct{}{}
		for i := 0; i < b.replicas; i++ {
			virtualKey := fmt.Sprintf("%s#%d", r.Key(), i)
			hash := b.hashFunc([]byte(virtualKey))
			for j := 0; j < 10; j++ {
				if _, exists := b.ring[hash]; !exists {
					break
				}
				virtualKey = fmt.Sprintf("%s#%d#%d", r.Key(), i, j)
				hash = b.hashFunc([]byte(virtualKey))
			}
			b.ring[hash] = r.Key()
		}
	}

	b.sortedHashes = make([]uint32, 0, len(b.ring))
	for hash := range b.ring {
		b.sortedHashes = append(b.sortedHashes, hash)
	}
	sort.Slice(b.sortedHashes, func(i, j int) bool { return b.sortedHashes[i] < b.sortedHashes[j] })
	b.built = true
}
