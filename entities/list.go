// SPDX-License-Identifier: GPL-2.0-or-later

package entities

// List is the decoded entity lump.
type List struct {
	Entities []*Entity
}

// Decode parses data into a List.
func Decode(data []byte) (*List, error) {
	es, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &List{Entities: es}, nil
}

func (l *List) Len() int {
	return len(l.Entities)
}

// Bytes marshals the entities. A list without entities is an absent lump
// and has no bytes.
func (l *List) Bytes() ([]byte, error) {
	if len(l.Entities) == 0 {
		return []byte{}, nil
	}
	return Marshal(l.Entities), nil
}

// Find returns every entity whose key has value among its values.
func (l *List) Find(key, value string) []*Entity {
	var r []*Entity
	for _, e := range l.Entities {
		for _, v := range e.properties[key] {
			if v == value {
				r = append(r, e)
				break
			}
		}
	}
	return r
}

// Worldspawn returns the first entity, which the engines require to be
// the world, or nil.
func (l *List) Worldspawn() *Entity {
	if len(l.Entities) == 0 {
		return nil
	}
	if n, _ := l.Entities[0].Name(); n != "worldspawn" {
		return nil
	}
	return l.Entities[0]
}
