package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeWorldMatrixComposesParentTransform(t *testing.T) {
	parent := NewNode("parent")
	parent.SetPosition(mgl32.Vec3{10, 0, 0})

	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 5, 0})
	parent.AddChild(child)

	world := child.GetWorldMatrix()
	origin := world.Mul4x1(mgl32.Vec4{0, 0, 0, 1})

	assert.InDelta(t, 10.0, origin.X(), 1e-5)
	assert.InDelta(t, 5.0, origin.Y(), 1e-5)
	assert.InDelta(t, 0.0, origin.Z(), 1e-5)
}

func TestNodeWorldMatrixInvalidatesOnParentMove(t *testing.T) {
	parent := NewNode("parent")
	child := NewNode("child")
	parent.AddChild(child)

	before := child.GetWorldMatrix()
	parent.SetPosition(mgl32.Vec3{0, 0, -3})

	after := child.GetWorldMatrix()
	assert.False(t, before.ApproxEqual(after), "cached world matrix should refresh after parent moves")
	assert.InDelta(t, -3.0, after.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Z(), 1e-5)
}

func TestNodeReparentDetachesFromOldParent(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	child := NewNode("child")

	a.AddChild(child)
	b.AddChild(child)

	assert.Empty(t, a.Children)
	require.Len(t, b.Children, 1)
	assert.Same(t, b, child.Parent)
}

func TestNodeFind(t *testing.T) {
	root := NewNode("root")
	mid := NewNode("mid")
	leaf := NewNode("leaf")
	root.AddChild(mid)
	mid.AddChild(leaf)

	assert.Same(t, leaf, root.Find("leaf"))
	assert.Nil(t, root.Find("missing"))
}

func TestNodeIDsAreUnique(t *testing.T) {
	a := NewNode("a")
	b := NewNode("a")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSceneGetVisibleNodesSkipsHiddenAndMeshless(t *testing.T) {
	s := NewScene()

	withMesh := NewNode("box")
	withMesh.Mesh = CreateCube(1)
	s.AddNode(withMesh)

	hidden := NewNode("hidden")
	hidden.Mesh = CreateCube(1)
	hidden.Visible = false
	s.AddNode(hidden)

	empty := NewNode("empty")
	s.AddNode(empty)

	visible := s.GetVisibleNodes()
	require.Len(t, visible, 1)
	assert.Same(t, withMesh, visible[0])
}
