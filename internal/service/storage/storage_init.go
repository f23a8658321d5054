package storage

import (
	bolt "go.etcd.io/bbolt"
)

type initStorageFunc func(tx *bolt.Tx) error

var initStorageFuncs = []initStorageFunc{
	createBucket(dataBucket),
	createBucket(seqBucket),
}

func createBucket(name string) initStorageFunc {
	return func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	}
}

func initStorage(tx *bolt.Tx) error {
	for _, f := range initStorageFuncs {
		if err := f(tx); err != nil {
			return err
		}
	}
	return nil
}
