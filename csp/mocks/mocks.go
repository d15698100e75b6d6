package mocks

import (
	"encoding/hex"
	"sync"

	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
)

// MockKeyStore 记录存入的密钥，StoreErr 非空时拒绝存储并返回该错误。
type MockKeyStore struct {
	StoreErr error

	mutex     sync.Mutex
	storedKey map[string]interfaces.Key
}

func NewMockKeyStore() *MockKeyStore {
	return &MockKeyStore{storedKey: make(map[string]interfaces.Key)}
}

func (m *MockKeyStore) ReadOnly() bool {
	return false
}

func (m *MockKeyStore) GetKey(ski []byte) (interfaces.Key, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.storedKey[hex.EncodeToString(ski)], nil
}

func (m *MockKeyStore) StoreKey(key interfaces.Key) error {
	if m.StoreErr != nil {
		return m.StoreErr
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.storedKey[hex.EncodeToString(key.SKI())] = key
	return nil
}

func (m *MockKeyStore) Num() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.storedKey)
}
