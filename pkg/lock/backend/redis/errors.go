package redis

import (
	"errors"
	"fmt"
)

// A RedisError is an error communicating with one of the redis nodes.
type RedisError struct {
	Node int
	Err  error
}

func (err RedisError) Error() string {
	return fmt.Sprintf("node %d: %v", err.Node, err.Err)
}

func (err RedisError) Unwrap() error {
	return err.Err
}

// ErrNodeTaken is the error resulting if the lock is already taken in one of
// the cluster's nodes.
type ErrNodeTaken struct {
	Node int
}

func (err ErrNodeTaken) Error() string {
	return fmt.Sprintf("node #%d: lock already taken", err.Node)
}

var ErrTaken = errors.New("lock already taken")
