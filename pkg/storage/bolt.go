package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
)

var (
	bucketNodes = []byte("nodes")
	bucketLinks = []byte("links") // keyed by from_id + NUL + random uuid suffix; the value holds the encoded link tag
)

// BoltAdapter is a go.etcd.io/bbolt-backed Adapter, generalizing the
// teacher's bucket-per-kind BoltStore to the node/link shape this
// engine's persistence layer needs.
type BoltAdapter struct {
	db *bolt.DB
}

// OpenBoltAdapter opens (creating if absent) a BoltDB file under
// dataDir, provisioning the nodes and links buckets.
func OpenBoltAdapter(dataDir string) (*BoltAdapter, error) {
	dbPath := filepath.Join(dataDir, "holontx.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketNodes, bucketLinks} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("storage: failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltAdapter{db: db}, nil
}

func (a *BoltAdapter) Close() error { return a.db.Close() }

type storedNode struct {
	ID         holon.HolonId
	Properties holon.PropertyMap
	OriginalID *holon.HolonId
}

func (a *BoltAdapter) PersistNode(ctx context.Context, properties holon.PropertyMap, originalID *holon.HolonId) (holon.HolonId, error) {
	id := holon.Local(uuid.NewString())
	record := storedNode{ID: id, Properties: properties, OriginalID: originalID}

	err := a.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketNodes).Put([]byte(id.LocalID), data)
	})
	if err != nil {
		return holon.HolonId{}, holonerr.Wrap(holonerr.CommitFailure, err, "persisting node")
	}
	return id, nil
}

func (a *BoltAdapter) DeleteNode(ctx context.Context, id holon.HolonId) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b.Get([]byte(id.LocalID)) == nil {
			return holonerr.New(holonerr.HolonNotFound, "for id: %s", id)
		}
		return b.Delete([]byte(id.LocalID))
	})
}

func (a *BoltAdapter) PersistLink(ctx context.Context, from, to holon.HolonId, name string, smartProps holon.PropertyMap) error {
	tag := EncodeLinkTag(name, smartProps)
	linkKey := []byte(from.LocalID + "\x00" + uuid.NewString())
	record := struct {
		From holon.HolonId
		To   holon.HolonId
		Tag  []byte
	}{From: from, To: to, Tag: tag}

	return a.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketNodes).Get([]byte(from.LocalID)) == nil {
			return holonerr.New(holonerr.HolonNotFound, "link source id: %s", from)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketLinks).Put(linkKey, data)
	})
}

func (a *BoltAdapter) GetNode(ctx context.Context, id holon.HolonId) (*holon.Holon, error) {
	var record storedNode
	var found bool
	err := a.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get([]byte(id.LocalID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, holonerr.Wrap(holonerr.RecordConversion, err, "decoding node %s", id)
	}
	if !found {
		return nil, nil
	}
	h := &holon.Holon{
		Phase:           holon.PhaseSaved,
		State:           holon.Immutable,
		Validation:      holon.NoDescriptor,
		PropertyMap:     record.Properties,
		RelationshipMap: make(map[holon.RelationshipName]*holon.HolonCollection),
		OriginalID:      record.OriginalID,
		SavedID:         &record.ID,
	}
	return h, nil
}

func (a *BoltAdapter) GetLinks(ctx context.Context, from holon.HolonId, name holon.RelationshipName) ([]Link, error) {
	prefix := []byte(from.LocalID + "\x00")
	var out []Link
	err := a.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLinks).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var record struct {
				From holon.HolonId
				To   holon.HolonId
				Tag  []byte
			}
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			tagName, smartProps, err := DecodeLinkTag(record.Tag)
			if err != nil {
				return err
			}
			if tagName == string(name) {
				out = append(out, Link{From: record.From, To: record.To, Name: tagName, SmartProperties: smartProps})
			}
		}
		return nil
	})
	if err != nil {
		return nil, holonerr.Wrap(holonerr.RecordConversion, err, "decoding links for %s", from)
	}
	return out, nil
}

func (a *BoltAdapter) GetAllNodes(ctx context.Context) ([]Node, error) {
	var out []Node
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var record storedNode
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			out = append(out, Node{ID: record.ID, Properties: record.Properties, OriginalID: record.OriginalID})
			return nil
		})
	})
	if err != nil {
		return nil, holonerr.Wrap(holonerr.RecordConversion, err, "listing nodes")
	}
	return out, nil
}

var _ Adapter = (*BoltAdapter)(nil)
