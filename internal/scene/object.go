package scene

// Object is a node of the scene tree. A tag names the role the object plays
// for an apparatus driver.
type Object struct {
	Name      string
	Tag       string
	Transform Transform
	// Line holds the rendered polyline of cable-like objects, in local space.
	Line []Vec3

	parent   *Object
	children []*Object
}

func NewObject(name, tag string) *Object {
	return &Object{Name: name, Tag: tag, Transform: Identity()}
}

// Add attaches children and returns o.
func (o *Object) Add(children ...*Object) *Object {
	for _, c := range children {
		c.parent = o
		o.children = append(o.children, c)
	}
	return o
}

func (o *Object) Parent() *Object     { return o.parent }
func (o *Object) Children() []*Object { return o.children }

// Child returns the first direct child with the given name.
func (o *Object) Child(name string) *Object {
	for _, c := range o.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits o and its descendants in pre-order.
func (o *Object) Walk(fn func(*Object)) {
	fn(o)
	for _, c := range o.children {
		c.Walk(fn)
	}
}

// FindWithTag returns o and every descendant carrying tag, in pre-order.
func (o *Object) FindWithTag(tag string) []*Object {
	var found []*Object
	if tag == "" {
		return found
	}
	o.Walk(func(obj *Object) {
		if obj.Tag == tag {
			found = append(found, obj)
		}
	})
	return found
}

// Rotate adds delta degrees to the local Euler rotation.
func (o *Object) Rotate(delta Vec3) {
	o.Transform.Rotation = o.Transform.Rotation.Add(delta)
}

// Roles maps a role tag to the objects resolved for it. A tag without matches
// maps to an empty slice.
type Roles map[string][]*Object

// FindRoles resolves every tag within the subtree rooted at root.
func FindRoles(root *Object, tags []string) Roles {
	roles := make(Roles, len(tags))
	for _, tag := range tags {
		found := root.FindWithTag(tag)
		if found == nil {
			found = []*Object{}
		}
		roles[tag] = found
	}
	return roles
}

// Get returns the objects for tag; unknown tags yield nil.
func (r Roles) Get(tag string) []*Object {
	return r[tag]
}
