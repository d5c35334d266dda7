package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAttr(t *testing.T) {
	ma := NewMapAttr()
	ma.SetInt("a", 1)
	ma.Set("b", int32(2))
	ma.Set("c", float32(0.5))
	ma.SetDefaultInt("a", 9)
	ma.SetDefaultStr("d", "x")

	assert.Equal(t, int64(1), ma.GetInt("a"))
	assert.Equal(t, int64(2), ma.GetInt("b"))
	assert.Equal(t, 0.5, ma.GetFloat("c"))
	assert.Equal(t, 2.0, ma.GetFloat("b"))
	assert.Equal(t, "x", ma.GetStr("d"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ma.Keys())
	assert.Equal(t, int64(1), ma.Pop("a"))
	assert.False(t, ma.HasKey("a"))
	assert.Equal(t, int64(0), ma.GetInt("a"))
	assert.Equal(t, `MapAttr{"b": 2, "c": 0.5, "d": "x"}`, ma.String())
}

func TestMapAttrProtoChain(t *testing.T) {
	base := NewMapAttr()
	base.SetStr("color", "red")
	base.GetDictAttr("loot").Set("gold", 5)

	ma := NewMapAttr()
	ma.setProto(base)
	assert.True(t, ma.HasKey("color"))
	assert.False(t, ma.IsOwn("color"))
	assert.Empty(t, ma.Keys())

	ma.GetDictAttr("loot").Set("gold", 7)
	assert.True(t, ma.IsOwn("loot"))
	assert.Equal(t, int64(5), base.GetDictAttr("loot").GetInt("gold"))
	assert.Equal(t, int64(7), ma.GetDictAttr("loot").GetInt("gold"))

	ma.SetStr("color", "blue")
	ma.Del("color")
	assert.Equal(t, "red", ma.GetStr("color"))

	assert.Panics(t, func() { ma.setProto(ma) })
}

func TestListAttr(t *testing.T) {
	la := NewListAttr(1, "two", 3.0)
	assert.Equal(t, 3, la.Size())
	assert.Equal(t, int64(1), la.GetInt(0))
	assert.Equal(t, "two", la.GetStr(1))
	assert.Equal(t, 3.0, la.GetFloat(2))
	la.SetBool(1, true)
	assert.True(t, la.GetBool(1))
	assert.Equal(t, 3.0, la.Pop())
	la.Clear()
	assert.Equal(t, 0, la.Size())
	assert.Panics(t, func() { la.Pop() })
}

func TestSetAttrOrder(t *testing.T) {
	sa := NewSetAttr("b", 2, true, "a", 1.5, false, 2)
	assert.Equal(t, 6, sa.Size())
	assert.Equal(t, []interface{}{false, true, 1.5, int64(2), "a", "b"}, sa.Values())
	sa.Remove(2)
	assert.False(t, sa.Contains(2))
	assert.Panics(t, func() { sa.Add(NewListAttr()) })
}

func TestBitvector(t *testing.T) {
	bv := NewBitvector(0, 9)
	assert.Equal(t, "0102", bv.SerializeBits())
	assert.True(t, bv.Test(9))
	assert.False(t, bv.Test(8))
	assert.False(t, bv.Test(1000))

	bv.Set(20)
	bv.Unset(20)
	assert.Equal(t, "0102", bv.SerializeBits())
	assert.Equal(t, "Bitvector{0, 9}", bv.String())

	parsed, err := ParseBitvector("0102")
	require.NoError(t, err)
	var set []int
	parsed.ForEach(func(i int) { set = append(set, i) })
	assert.Equal(t, []int{0, 9}, set)

	_, err = ParseBitvector("zz")
	assert.Error(t, err)

	var _ BitSerializer = bv
	assert.Equal(t, KindBitvector, Classify(bv))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNumber, Classify(1))
	assert.Equal(t, KindNumber, Classify(1.5))
	assert.Equal(t, KindString, Classify("x"))
	assert.Equal(t, KindPlain, Classify(NewMapAttr()))
	assert.Equal(t, KindDict, Classify(NewDictAttr()))
	assert.Equal(t, KindEntity, Classify(&Entity{}))
	assert.Equal(t, KindObject, Classify(&Object{}))
	assert.Equal(t, KindUnsupported, Classify(nil))
	assert.Equal(t, KindUnsupported, Classify([]int{1}))
	assert.Equal(t, "Map", KindDict.String())
}

func TestErrorMessages(t *testing.T) {
	err := newError(SchemaError, "Room", "exits", "bad %s", "thing")
	assert.Equal(t, "schema error: Room.exits: bad thing", err.Error())
	assert.Equal(t, "schema error: Room.exits: bad thing (file a.json)", WithFile(err, "a.json").Error())
	assert.True(t, err.Is(ErrSchema))
	assert.False(t, err.Is(ErrConfig))
	assert.Equal(t, ErrorKind(0), KindOf(nil))
}
