package arangodb

import (
	"context"
	"fmt"
	"reflect"

	"github.com/arangodb/go-driver/v2/arangodb"
)

// decodeCursor drains an AQL cursor into the slice out points to, allocating
// a fresh element of the slice's element type per row.
func decodeCursor(ctx context.Context, cursor arangodb.Cursor, out any) error {
	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("decodeCursor: out must be a pointer to a slice, got %T", out)
	}
	slice := ptr.Elem()
	elemType := slice.Type().Elem()

	for cursor.HasMore() {
		elemPtr := reflect.New(elemType)
		if _, err := cursor.ReadDocument(ctx, elemPtr.Interface()); err != nil {
			return fmt.Errorf("read cursor row: %w", err)
		}
		slice.Set(reflect.Append(slice, elemPtr.Elem()))
	}
	return nil
}
