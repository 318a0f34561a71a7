package util

import "sync"

// KeyedMutex 按用户ID串行化写操作。完成步骤、记录练习、徽章发放都是
// 对 UserStats 和 Assignment 的读改写，同一用户的并发请求必须排队。
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uint]*sync.Mutex)}
}

// Lock 锁定指定用户，返回解锁函数
func (k *KeyedMutex) Lock(userID uint) func() {
	k.mu.Lock()
	m, ok := k.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[userID] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
