package inmemkv

import (
	"testing"

	"github.com/trezcool/masomo-portal/tests"
)

func TestStore(t *testing.T) {
	testutil.TestKeyValueStore(t, NewStore())
}
