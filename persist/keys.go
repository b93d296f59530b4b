package persist

import "fmt"

// snapshotDataKey is the key that holds the serialized snapshot bytes for one
// snapshot id.
func snapshotDataKey(namespace, id string) string {
	return fmt.Sprintf("%s:SNAPSHOT:DATA:%s", namespace, id)
}

// snapshotSchemaKey is the key that holds the schema manifest (component name
// to JSON schema) recorded when the snapshot was saved.
func snapshotSchemaKey(namespace, id string) string {
	return fmt.Sprintf("%s:SNAPSHOT:SCHEMA:%s", namespace, id)
}

// snapshotIndexKey is the key of the set holding every stored snapshot id in
// the namespace.
func snapshotIndexKey(namespace string) string {
	return fmt.Sprintf("%s:SNAPSHOT:IDS", namespace)
}
