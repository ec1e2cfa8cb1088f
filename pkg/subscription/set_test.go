package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavecast/wavecast-go/pkg/entity"
)

func TestSetSubscriptionInputIsUnionOfMembers(t *testing.T) {
	reg := &fakeRegistrar{}
	set := NewSet(reg)

	a := New(reg, entity.NewEntity(entity.KindChannel, "c1"), []string{"c1"}, nil)
	b := New(reg, entity.NewEntity(entity.KindChannel, "c2"), []string{"c2"}, nil)
	a.Subscribe()
	b.Subscribe()
	set.Add(a)
	set.Add(b)

	in := set.SubscriptionInput(false)
	assert.ElementsMatch(t, []string{"c1", "c2"}, in.Channels)
}

func TestSetAddAndRemovePropagatesInputChange(t *testing.T) {
	reg := &fakeRegistrar{}
	set := NewSet(reg)
	a := New(reg, entity.NewEntity(entity.KindChannel, "c1"), []string{"c1"}, nil)

	set.Add(a)
	assert.Len(t, reg.propagated, 1)

	set.Remove(a)
	assert.Len(t, reg.propagated, 2)
	assert.Len(t, set.Members(), 0)
}

func TestSetSubscribeActivatesEveryMember(t *testing.T) {
	reg := &fakeRegistrar{}
	set := NewSet(reg)
	ent := entity.NewEntity(entity.KindChannel, "c1")
	a := New(reg, ent, []string{"c1"}, nil)
	set.Add(a)

	set.Subscribe()
	assert.Equal(t, int64(1), ent.Count())
	assert.Contains(t, reg.registered, Handle(set))
}

func TestSetCursorAlwaysAbsent(t *testing.T) {
	set := NewSet(&fakeRegistrar{})
	_, ok := set.Cursor()
	assert.False(t, ok)
}
