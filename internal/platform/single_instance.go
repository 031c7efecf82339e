// Package platform keeps one process in charge of the timer at a time.
package platform

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning indicates another process already owns the timer.
var ErrAlreadyRunning = errors.New("timer already owned by another fiztarefa process")

// InstanceGuard holds the single-instance lock. While held it answers
// connections on its port with a one-line description of the owner.
type InstanceGuard struct {
	listener net.Listener
	address  string
	info     string

	wg       sync.WaitGroup
	once     sync.Once
	closeErr error
}

// AcquireSingleInstance binds a localhost port derived from key. key is
// usually the data directory so separate profiles do not block each other.
func AcquireSingleInstance(key, info string) (*InstanceGuard, error) {
	address := AddressFor(key)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, address)
	}
	guard := &InstanceGuard{listener: listener, address: address, info: info}
	guard.wg.Add(1)
	go guard.serve()
	return guard, nil
}

func (guard *InstanceGuard) serve() {
	defer guard.wg.Done()
	for {
		conn, err := guard.listener.Accept()
		if err != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_, _ = fmt.Fprintln(conn, guard.info)
		conn.Close()
	}
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	guard.once.Do(func() {
		guard.closeErr = guard.listener.Close()
		guard.wg.Wait()
	})
	return guard.closeErr
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

// QueryOwner asks the process holding the lock for key to describe itself.
func QueryOwner(key string) (string, error) {
	conn, err := net.DialTimeout("tcp", AddressFor(key), time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AddressFor returns the lock address used for key.
func AddressFor(key string) string {
	return fmt.Sprintf("127.0.0.1:%d", portFromName("fiztarefa:"+key))
}

func portFromName(name string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(name))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
