package cache

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBaseForm(t *testing.T) {
	assert.Equal(t, "products:list", Key("products", "list", nil))
	assert.Equal(t, "products:list", Key("products", "list", map[string]any{}))
}

func TestKeyWithParams(t *testing.T) {
	got := Key("products", "list", map[string]any{"page": 2, "sort": "price"})

	encoded := base64.StdEncoding.EncodeToString([]byte(`page=2&sort="price"`))
	assert.Equal(t, "products:list:"+encoded, got)
}

func TestKeyDeterministic(t *testing.T) {
	// Same parameters assembled in different orders must collapse to the
	// same canonical key.
	a := map[string]any{}
	a["zeta"] = 1
	a["alpha"] = "x"
	a["mid"] = true

	b := map[string]any{}
	b["mid"] = true
	b["zeta"] = 1
	b["alpha"] = "x"

	for i := 0; i < 50; i++ {
		assert.Equal(t, Key("ns", "k", a), Key("ns", "k", b))
	}
}

func TestKeyNullParam(t *testing.T) {
	got := Key("ns", "k", map[string]any{"filter": nil})

	encoded := base64.StdEncoding.EncodeToString([]byte(`filter=null`))
	assert.Equal(t, "ns:k:"+encoded, got)
}

func TestKeyDistinctParams(t *testing.T) {
	plain := Key("ns", "k", nil)
	withParams := Key("ns", "k", map[string]any{"page": 1})
	otherParams := Key("ns", "k", map[string]any{"page": 2})

	assert.NotEqual(t, plain, withParams)
	assert.NotEqual(t, withParams, otherParams)
}
