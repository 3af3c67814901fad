package persist

import "fmt"

// ShardKey returns the host key a shard is stored under. Co-located shards
// of the same graph share a hashtag prefix so a clustered host store (one
// that shards by key hash) keeps them on the same node; graphName appears
// twice by design, once inside the hashtag braces to pin placement and
// once outside to keep the key self-describing without parsing the tag.
func ShardKey(graphName string, shardUUID string, coLocate bool) string {
	if coLocate {
		return fmt.Sprintf("{%s}%s_%s", graphName, graphName, shardUUID)
	}
	return fmt.Sprintf("%s_%s", graphName, shardUUID)
}
