package entity

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/idgen"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Room struct {
	Entity
}

func (r *Room) DescribeType(desc *TypeDesc) {
	desc.SetVersion(2)
	desc.DefineAttr("secret", "!saved", "!sentToClient")
	desc.DefineAttr("description", "!sentToClient")
}

type Character struct {
	Entity
	instantiated int
	removed      int
}

func (c *Character) OnInstantiated() {
	c.instantiated++
}

func (c *Character) OnRemoved() {
	c.removed++
}

type Stats struct {
	Object
}

func (s *Stats) DescribeType(desc *TypeDesc) {
	desc.SetVersion(1)
	desc.DefineAttr("hidden", "!sentToClient")
}

func newTestRegistry() (*TypeRegistry, *Registry) {
	types := NewTypeRegistry()
	types.RegisterEntity("Room", &Room{})
	types.RegisterEntity("Character", &Character{})
	types.RegisterObject("Stats", &Stats{})
	return types, NewRegistry(types, idgen.NewServer(time.Unix(1700000000, 0)))
}

func mustInstantiate(t *testing.T, reg *Registry, typeName string, id string) *Entity {
	t.Helper()
	proto, err := reg.CreateRootPrototypeEntity(typeName)
	require.NoError(t, err)
	e, err := reg.InstantiateEntity(proto, common.EntityID(id))
	require.NoError(t, err)
	return e
}

func toJSONString(t *testing.T, obj IObject, mode attrs.Mode) string {
	t.Helper()
	doc, err := NewSerializer(mode).ToJSON(obj)
	require.NoError(t, err)
	data, err := jsonutil.Marshal(doc, false)
	require.NoError(t, err)
	return string(data)
}

func parse(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	doc, err := jsonutil.ParseObject([]byte(s), "")
	require.NoError(t, err)
	return doc
}

func TestSerializeKeyOrder(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.SetName("hall")
	room.Set("width", 2.0)
	room.Set("count", 3)
	exits := room.GetDictAttr("exits")
	exits.Set("b", 2)
	exits.Set("a", 1)

	assert.Equal(t,
		`{"id":"r1","prototypeId":"Room","name":"hall","className":"Room","version":2,"count":3,"exits":{"className":"Map","data":{"a":1,"b":2}},"width":2.0}`,
		toJSONString(t, room, attrs.SaveToFile))
}

func TestMapRecord(t *testing.T) {
	types, reg := newTestRegistry()
	dict := NewDictAttr()
	dict.Set("a", 1)
	dict.Set("b", 2)

	v, empty, err := NewSerializer(attrs.SaveToFile).convert(dict, "Room", "exits")
	require.NoError(t, err)
	assert.False(t, empty)
	data, err := jsonutil.Marshal(v, false)
	require.NoError(t, err)
	assert.Equal(t, `{"className":"Map","data":{"a":1,"b":2}}`, string(data))

	parsed, err := jsonutil.Parse(data, "")
	require.NoError(t, err)
	back, err := NewDeserializer(reg, types, attrs.SaveToFile).convert(parsed, nil, "Room", "exits")
	require.NoError(t, err)
	da := back.(*DictAttr)
	assert.Equal(t, 2, da.Size())
	assert.Equal(t, int64(1), da.GetInt("a"))
	assert.Equal(t, int64(2), da.GetInt("b"))
}

func TestRoundTrip(t *testing.T) {
	types, reg := newTestRegistry()
	owner := mustInstantiate(t, reg, "Character", "c1")
	room := mustInstantiate(t, reg, "Room", "")
	room.SetName("cellar")
	room.Set("width", 2.0)
	room.Set("depth", 2.5)
	room.Set("lit", true)
	room.Set("title", "The Cellar")
	room.Set("owner", owner)
	room.GetListAttr("items").AppendStr("lamp")
	room.GetListAttr("items").AppendInt(7)
	room.GetMapAttr("pos").SetInt("x", 1)
	room.GetMapAttr("pos").SetFloat("y", 3)
	room.GetSetAttr("tags").Add("dark")
	room.GetSetAttr("tags").Add(42)
	room.GetBitvector("flags").Set(0)
	room.GetBitvector("flags").Set(9)
	stats, err := types.NewInstanceByName("Stats")
	require.NoError(t, err)
	stats.object().Attrs.SetInt("hp", 10)
	room.Set("stats", stats)

	saved := toJSONString(t, room, attrs.SaveToFile)

	reg2 := NewRegistry(types, idgen.NewServer(time.Now()))
	owner2 := mustInstantiate(t, reg2, "Character", "c1")
	room2, err := reg2.InstantiateByPrototypeID("Room", room.ID())
	require.NoError(t, err)
	require.NoError(t, room2.FromJSON(parse(t, saved), attrs.SaveToFile))

	assert.Equal(t, "cellar", room2.Name())
	assert.Equal(t, 2.0, room2.Attrs.Get("width"))
	assert.Equal(t, 2.5, room2.GetFloat("depth"))
	assert.True(t, room2.GetBool("lit"))
	assert.Equal(t, "The Cellar", room2.GetStr("title"))
	assert.Same(t, owner2, room2.GetEntity("owner"))
	assert.Equal(t, []interface{}{"lamp", int64(7)}, room2.GetListAttr("items").ToList())
	assert.Equal(t, int64(1), room2.GetMapAttr("pos").GetInt("x"))
	assert.Equal(t, 3.0, room2.GetMapAttr("pos").Get("y"))
	assert.True(t, room2.GetSetAttr("tags").Contains("dark"))
	assert.True(t, room2.GetSetAttr("tags").Contains(42))
	assert.True(t, room2.GetBitvector("flags").Test(9))
	assert.Equal(t, 2, room2.GetBitvector("flags").Count())
	stats2, ok := room2.Attrs.GetObject("stats").(*Stats)
	require.True(t, ok)
	assert.Equal(t, int64(10), stats2.Attrs.GetInt("hp"))

	assert.Equal(t, saved, toJSONString(t, room2, attrs.SaveToFile))
}

func TestModeFiltering(t *testing.T) {
	types, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("secret", "xyzzy")
	room.Set("description", "damp")
	room.Set("size", 4)
	stats, _ := types.NewInstanceByName("Stats")
	stats.object().Attrs.SetInt("hidden", 1)
	stats.object().Attrs.SetInt("hp", 5)
	room.Set("stats", stats)

	saved := parse(t, toJSONString(t, room, attrs.SaveToFile))
	assert.NotContains(t, saved, "secret")
	assert.Contains(t, saved, "description")
	assert.Contains(t, saved, "version")

	client := parse(t, toJSONString(t, room, attrs.SendToClient))
	assert.NotContains(t, client, "secret")
	assert.NotContains(t, client, "description")
	assert.NotContains(t, client, "version")
	assert.Equal(t, "Room", client["className"])
	nested := client["stats"].(map[string]interface{})
	assert.NotContains(t, nested, "hidden")
	assert.NotContains(t, nested, "version")
	assert.Contains(t, nested, "hp")

	server := parse(t, toJSONString(t, room, attrs.SendToServer))
	assert.Contains(t, server, "secret")
}

func TestEmptyValuesSkipped(t *testing.T) {
	types, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.GetListAttr("items")
	room.GetDictAttr("exits")
	room.GetSetAttr("tags")
	room.GetMapAttr("pos")
	room.GetBitvector("flags")
	stats, _ := types.NewInstanceByName("Stats")
	room.Set("stats", stats)
	room.Set("zero", 0)

	doc := parse(t, toJSONString(t, room, attrs.SaveToFile))
	for _, key := range []string{"items", "exits", "tags", "pos", "flags", "stats"} {
		assert.NotContains(t, doc, key)
	}
	assert.Contains(t, doc, "zero")
}

func TestUnsupportedValue(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("built", time.Now())

	_, err := NewSerializer(attrs.SaveToFile).ToJSON(room)
	require.ErrorIs(t, err, ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "Room.built")

	room.Attrs.Del("built")
	room.GetMapAttr("pos").Set("ch", make(chan int))
	_, err = NewSerializer(attrs.SaveToFile).ToJSON(room)
	require.ErrorIs(t, err, ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "pos.ch")
}

func TestReservedPropertyName(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("className", "Hack")
	_, err := NewSerializer(attrs.SaveToFile).ToJSON(room)
	require.ErrorIs(t, err, ErrSchema)
}

func TestVersionMismatchWritesNothing(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("size", 1)

	err := room.FromJSON(parse(t, `{"id":"r1","prototypeId":"Room","className":"Room","version":1,"size":9}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrIdentity)
	assert.Equal(t, int64(1), room.GetInt("size"))

	// wire modes carry no version
	require.NoError(t, room.FromJSON(parse(t, `{"id":"r1","className":"Room","size":9}`), attrs.SendToServer))
	assert.Equal(t, int64(9), room.GetInt("size"))
}

func TestHeaderErrors(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")

	err := room.FromJSON(parse(t, `{"version":2,"size":9}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), `missing key "className"`)

	err = room.FromJSON(parse(t, `{"className":"Character","version":2}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrIdentity)

	err = room.FromJSON(parse(t, `{"className":"Room","version":2,"id":"r2"}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrIdentity)

	err = room.FromJSON(parse(t, `{"className":"Room","version":2,"id":"r1","prototypeId":"Character"}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrIdentity)
}

func TestStagedLoad(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("count", 1)
	room.Set("title", "old")

	// "count" sorts before "title", but nothing is written when "title" fails
	err := room.FromJSON(parse(t, `{"className":"Room","version":2,"count":5,"title":7}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), "kind mismatch")
	assert.Equal(t, int64(1), room.GetInt("count"))
	assert.Equal(t, "old", room.GetStr("title"))

	err = room.FromJSON(parse(t, `{"className":"Room","version":2,"count":null}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), "null")
}

func TestLoadFileName(t *testing.T) {
	types, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	err := NewDeserializer(reg, types, attrs.SaveToFile).SetFile("rooms/r1.json").
		FromJSON(parse(t, `{"className":"Room","version":3}`), room)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rooms/r1.json")
	assert.Equal(t, IdentityError, KindOf(err))
}

func TestIntegerFloatPreserved(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("ratio", 0.5)

	require.NoError(t, room.FromJSON(parse(t, `{"className":"Room","version":2,"ratio":3}`), attrs.SaveToFile))
	assert.Equal(t, 3.0, room.Attrs.Get("ratio"))
}

func TestUnresolvedReference(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	doc := `{"id":"r1","prototypeId":"Room","className":"Room","version":2,"owner":{"className":"Entity","id":"ghost"}}`
	require.NoError(t, room.FromJSON(parse(t, doc), attrs.SaveToFile))

	ghost := room.GetEntity("owner")
	require.NotNil(t, ghost)
	assert.False(t, ghost.IsValid())
	assert.Panics(t, func() { ghost.ID() })
	assert.Panics(t, func() { ghost.GetInt("hp") })

	// the reference survives a save
	assert.Equal(t, doc, toJSONString(t, room, attrs.SaveToFile))
}

func TestMutualReferences(t *testing.T) {
	types, reg := newTestRegistry()
	a := mustInstantiate(t, reg, "Character", "a")
	b := mustInstantiate(t, reg, "Character", "b")
	a.Set("friend", b)
	b.Set("friend", a)
	docA := toJSONString(t, a, attrs.SaveToFile)
	docB := toJSONString(t, b, attrs.SaveToFile)

	reg2 := NewRegistry(types, idgen.NewClient())
	// instantiate everything first, then load properties
	a2, err := reg2.InstantiateByPrototypeID("Character", "a")
	require.NoError(t, err)
	b2, err := reg2.InstantiateByPrototypeID("Character", "b")
	require.NoError(t, err)
	require.NoError(t, a2.FromJSON(parse(t, docA), attrs.SaveToFile))
	require.NoError(t, b2.FromJSON(parse(t, docB), attrs.SaveToFile))

	assert.Same(t, b2, a2.GetEntity("friend"))
	assert.Same(t, a2, b2.GetEntity("friend"))
	assert.True(t, a2.GetEntity("friend").IsValid())
}

func TestNestedObjectVersion(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")

	err := room.FromJSON(parse(t, `{"className":"Room","version":2,"stats":{"className":"Stats","version":5,"hp":1}}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrIdentity)
	assert.Nil(t, room.Attrs.Get("stats"))

	err = room.FromJSON(parse(t, `{"className":"Room","version":2,"stats":{"className":"Nope","hp":1}}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), "unresolved class marker")

	err = room.FromJSON(parse(t, `{"className":"Room","version":2,"stats":{"className":"Character","hp":1}}`), attrs.SaveToFile)
	require.ErrorIs(t, err, ErrSchema)
}

func TestAssignIdentity(t *testing.T) {
	types, reg := newTestRegistry()
	inst, err := types.NewInstanceByName("Character")
	require.NoError(t, err)
	e := inst.(IEntity).entity()

	d := NewDeserializer(reg, types, attrs.SaveToFile)
	require.NoError(t, d.FromJSON(parse(t, `{"id":"x1","prototypeId":"Character","className":"Character","version":0}`), inst))
	assert.Equal(t, "x1", string(e.ID()))
	assert.Equal(t, "Character", string(e.PrototypeID()))
	assert.Error(t, e.setIdentity("x2", ""))
}

func TestPrototypeInheritance(t *testing.T) {
	_, reg := newTestRegistry()
	proto, err := reg.CreateRootPrototypeEntity("Room")
	require.NoError(t, err)
	proto.SetName("room")
	proto.Set("description", "plain")
	proto.GetListAttr("items").AppendStr("dust")

	room, err := reg.InstantiateEntity(proto, "")
	require.NoError(t, err)
	assert.Equal(t, "room", room.Name())
	assert.Equal(t, "plain", room.GetStr("description"))

	// containers are copied on access, the prototype keeps its own
	room.GetListAttr("items").AppendStr("coin")
	assert.Equal(t, 1, proto.GetListAttr("items").Size())
	assert.Equal(t, 2, room.GetListAttr("items").Size())

	// prototype edits stay visible where the instance did not shadow them
	proto.Set("description", "dusty")
	assert.Equal(t, "dusty", room.GetStr("description"))
	room.Set("description", "own")
	assert.Equal(t, "dusty", proto.GetStr("description"))

	doc := parse(t, toJSONString(t, room, attrs.SaveToFile))
	assert.NotContains(t, doc, "name")
	assert.Equal(t, "own", doc["description"])
	assert.Equal(t, "Room", doc["prototypeId"])

	// loading a plain object merges into the inherited value without touching the prototype
	proto.GetMapAttr("pos").SetInt("x", 1)
	require.NoError(t, room.FromJSON(parse(t, `{"className":"Room","version":2,"pos":{"y":2}}`), attrs.SaveToFile))
	assert.Equal(t, int64(1), room.GetMapAttr("pos").GetInt("x"))
	assert.Equal(t, int64(2), room.GetMapAttr("pos").GetInt("y"))
	assert.False(t, proto.GetMapAttr("pos").HasKey("y"))
}

func TestInstantiateIdempotent(t *testing.T) {
	_, reg := newTestRegistry()
	proto, err := reg.CreateRootPrototypeEntity("Character")
	require.NoError(t, err)
	again, err := reg.CreateRootPrototypeEntity("Character")
	require.NoError(t, err)
	assert.Same(t, proto, again)
	assert.True(t, proto.IsRootPrototype())
	assert.Equal(t, "Character", string(proto.ID()))
	assert.Empty(t, proto.PrototypeID())

	c1, err := reg.InstantiateEntity(proto, "c1")
	require.NoError(t, err)
	c2, err := reg.InstantiateEntity(proto, "c1")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, c1.I.(*Character).instantiated)
	assert.Equal(t, 2, reg.Len())

	gen, err := reg.InstantiateEntity(proto, "")
	require.NoError(t, err)
	assert.Equal(t, "loyw3v28-1", string(gen.ID()))

	_, err = reg.CreateRootPrototypeEntity("Stats")
	require.ErrorIs(t, err, ErrSchema)
	_, err = reg.CreateRootPrototypeEntity("Unknown")
	require.ErrorIs(t, err, ErrSchema)
	_, err = reg.InstantiateByPrototypeID("missing", "m1")
	require.ErrorIs(t, err, ErrIdentity)
}

func TestRemoveInvalidates(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	ch := mustInstantiate(t, reg, "Character", "c1")
	room.Set("owner", ch)
	items := room.GetListAttr("items")
	items.AppendStr("lamp")
	pos := room.GetMapAttr("pos")
	pos.SetInt("x", 1)

	require.NoError(t, reg.Remove(room))
	_, err := reg.Get("r1")
	require.ErrorIs(t, err, ErrIdentity)
	assert.False(t, room.IsValid())
	assert.True(t, room.IsRemoved())
	assert.Panics(t, func() { room.ID() })
	assert.Panics(t, func() { room.GetInt("size") })
	assert.Panics(t, func() { room.Attrs.Set("size", 1) })
	assert.Panics(t, func() { items.Size() })
	assert.Panics(t, func() { pos.GetInt("x") })
	assert.Contains(t, room.String(), "removed")

	// references are not followed
	assert.True(t, ch.IsValid())

	require.ErrorIs(t, reg.Remove(room), ErrIdentity)

	require.NoError(t, reg.Remove(ch))
	assert.Equal(t, 1, ch.I.(*Character).removed)
}

func TestSerializeRemovedReference(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	ch := mustInstantiate(t, reg, "Character", "c1")
	room.Set("owner", ch)
	require.NoError(t, reg.Remove(ch))

	_, err := NewSerializer(attrs.SaveToFile).ToJSON(room)
	require.ErrorIs(t, err, ErrIdentity)

	assert.Panics(t, func() { NewSerializer(attrs.SaveToFile).ToJSON(ch) })
}

func TestRegistryListing(t *testing.T) {
	_, reg := newTestRegistry()
	mustInstantiate(t, reg, "Room", "r2")
	mustInstantiate(t, reg, "Room", "r1")
	mustInstantiate(t, reg, "Character", "c1")

	assert.Equal(t, []common.EntityID{"Character", "Room", "c1", "r1", "r2"}, reg.IDs())
	rooms := reg.ByType("Room")
	require.Len(t, rooms, 3)
	assert.Equal(t, "Room", string(rooms[0].ID()))
	assert.Equal(t, "r1", string(rooms[1].ID()))

	n := 0
	reg.ForEach(func(e *Entity) {
		n++
		if e.TypeName == "Character" && !e.IsRootPrototype() {
			require.NoError(t, reg.Remove(e))
		}
	})
	assert.Equal(t, 5, n)
	assert.Equal(t, 4, reg.Len())
	assert.True(t, reg.Contains("r1"))
	assert.False(t, reg.GetReference("c1").IsValid())
}

func TestRegisterTypeErrors(t *testing.T) {
	types := NewTypeRegistry()
	types.RegisterEntity("Room", &Room{})
	assert.Panics(t, func() { types.RegisterEntity("Room", &Room{}) })
	assert.Panics(t, func() { types.RegisterEntity("Map", &Room{}) })
	assert.Panics(t, func() { types.RegisterObject("Entity", &Stats{}) })
	assert.Panics(t, func() { types.RegisterObject("Player", &Character{}) })
	assert.Panics(t, func() { types.Get("Room").DefineAttr("x", "bogus") })
	assert.Equal(t, []string{"Room"}, types.TypeNames())
	assert.Equal(t, 2, types.Get("Room").Version())
	assert.True(t, types.Get("Room").IsEntity())
}

func TestApplyClassSpecs(t *testing.T) {
	types, reg := newTestRegistry()
	specs, err := attrs.LoadTables([]byte(`
Room:
  version: 3
  attributes:
    size: {saved: false}
`))
	require.NoError(t, err)
	require.NoError(t, types.ApplyClassSpecs(specs))
	assert.Equal(t, 3, types.Get("Room").Version())

	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("size", 3)
	assert.NotContains(t, parse(t, toJSONString(t, room, attrs.SaveToFile)), "size")

	specs, err = attrs.LoadTables([]byte("Dungeon: {version: 1}\n"))
	require.NoError(t, err)
	require.ErrorIs(t, types.ApplyClassSpecs(specs), ErrConfig)
}

func TestLoadClassAttrs(t *testing.T) {
	types, _ := newTestRegistry()
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, ioutil.WriteFile(good, []byte("Room:\n  version: 5\n"), 0644))
	require.NoError(t, types.LoadClassAttrs(good))
	assert.Equal(t, 5, types.Get("Room").Version())

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, ioutil.WriteFile(bad, []byte("Room:\n  attributes:\n    size: {saved: 1}\n"), 0644))
	err := types.LoadClassAttrs(bad)
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "bad.yaml")

	assert.Error(t, types.LoadClassAttrs(filepath.Join(dir, "missing.yaml")))
}

func TestContainerStoredOnce(t *testing.T) {
	types, reg := newTestRegistry()
	a := mustInstantiate(t, reg, "Room", "a")
	b := mustInstantiate(t, reg, "Room", "b")

	items := NewListAttr("lamp")
	a.Set("items", items)
	a.Set("items", items)
	assert.Panics(t, func() { b.Set("items", items) })
	assert.Panics(t, func() { b.GetListAttr("bag").Append(items) })
	assert.Panics(t, func() { b.GetDictAttr("exits").Set("north", items) })
	assert.False(t, b.Attrs.IsOwn("items"))

	stats, err := types.NewInstanceByName("Stats")
	require.NoError(t, err)
	a.Set("stats", stats)
	assert.Panics(t, func() { b.Set("stats", stats) })
	flags := a.GetBitvector("flags")
	assert.Panics(t, func() { b.Set("flags", flags) })

	// popped values can be stored again
	b.Set("items", a.Attrs.Pop("items"))
	require.NoError(t, reg.Remove(a))
	assert.Equal(t, []interface{}{"lamp"}, b.GetListAttr("items").ToList())

	replaced := NewDictAttr()
	b.Set("exits", replaced)
	b.Set("exits", NewDictAttr())
	b.GetMapAttr("pos").Set("exits", replaced)
	assert.Equal(t, 0, b.GetMapAttr("pos").Get("exits").(*DictAttr).Size())
}

func TestSetLargeUnsignedRejected(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("small", uint64(5))
	assert.Equal(t, int64(5), room.GetInt("small"))

	recovered := func() (r interface{}) {
		defer func() {
			r = recover()
		}()
		room.Set("huge", uint64(1<<63))
		return nil
	}()
	err, ok := recovered.(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	assert.False(t, room.Attrs.IsOwn("huge"))

	_, _, err = NewSerializer(attrs.SaveToFile).convert(uint64(1<<63), "Room", "huge")
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestSetNativeContainers(t *testing.T) {
	_, reg := newTestRegistry()
	room := mustInstantiate(t, reg, "Room", "r1")
	room.Set("pos", map[string]interface{}{
		"x":    1,
		"tags": []interface{}{"a", uint8(2)},
	})
	pos := room.GetMapAttr("pos")
	assert.Equal(t, int64(1), pos.GetInt("x"))
	assert.Equal(t, []interface{}{"a", int64(2)}, pos.Get("tags").(*ListAttr).ToList())
	assert.Contains(t, toJSONString(t, room, attrs.SaveToFile), `"pos":{"tags":["a",2],"x":1}`)
}

func TestFromJSONUnregisteredObject(t *testing.T) {
	err := (&Stats{}).FromJSON(map[string]interface{}{"className": "Stats", "version": 1}, nil, attrs.SaveToFile)
	require.ErrorIs(t, err, ErrSchema)
}
