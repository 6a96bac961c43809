package taxonomy

import (
	"context"
	"fmt"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// DefaultEtcdPrefix is the key prefix LoadEtcd reads when none is given.
const DefaultEtcdPrefix = "/graphkit/taxonomy/"

// LoadEtcd builds a catalog snapshot from the keys under prefix.
//
// Each key holds one YAML Definition and is laid out as
// <prefix><category>/<name>. The category segment wins over any category in
// the value. Keys are registered in creation order, so the first type written
// to etcd is the first dominance tie-breaker.
func LoadEtcd(ctx context.Context, kv clientv3.KV, prefix string) (*Catalog, error) {
	if prefix == "" {
		prefix = DefaultEtcdPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	resp, err := kv.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortAscend),
	)
	if err != nil {
		return nil, fmt.Errorf("read catalog from etcd: %w", err)
	}

	defs := make([]Definition, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		key := strings.TrimPrefix(string(kv.Key), prefix)
		category, _, ok := strings.Cut(key, "/")
		if !ok {
			return nil, fmt.Errorf("%w: etcd key %q is not <category>/<name>", ErrInvalidDefinition, kv.Key)
		}

		var def Definition
		if err := yaml.Unmarshal(kv.Value, &def); err != nil {
			return nil, fmt.Errorf("decode etcd key %q: %w", kv.Key, err)
		}
		def.Category = Category(category)
		defs = append(defs, def)
	}

	return NewCatalog(defs...)
}

// PutEtcd writes definitions under prefix in the layout LoadEtcd reads.
func PutEtcd(ctx context.Context, kv clientv3.KV, prefix string, defs ...Definition) error {
	if prefix == "" {
		prefix = DefaultEtcdPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	for _, def := range defs {
		data, err := yaml.Marshal(def)
		if err != nil {
			return fmt.Errorf("encode %q: %w", def.Name, err)
		}
		key := prefix + string(def.Category) + "/" + def.Name
		if _, err := kv.Put(ctx, key, string(data)); err != nil {
			return fmt.Errorf("write etcd key %q: %w", key, err)
		}
	}
	return nil
}
