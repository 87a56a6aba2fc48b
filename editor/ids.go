package editor

import (
	vcschema "github.com/credkit/vcschema"
)

// assignIDs gives every node of the subtree without an ID a fresh one.
func (s *Session) assignIDs(p *vcschema.FormProperty) {
	if p == nil {
		return
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	switch sh := p.Shape.(type) {
	case *vcschema.Object:
		s.assignFieldIDs(sh.Properties)
	case *vcschema.Array:
		switch it := sh.Items.(type) {
		case vcschema.Homogeneous:
			s.assignIDs(it.Item)
		case vcschema.Tuple:
			for _, item := range it.Items {
				s.assignIDs(item)
			}
		}
	}
}

func (s *Session) assignFieldIDs(f *vcschema.Fields) {
	for _, p := range f.All() {
		s.assignIDs(p)
	}
}

// adoptIDs copies IDs from prev onto the nodes of next that sit under the
// same key path, so that re-importing an edited document keeps identities.
func adoptIDs(prev, next *vcschema.Fields) {
	for key, n := range next.All() {
		if p, ok := prev.Get(key); ok {
			adoptNode(p, n)
		}
	}
}

func adoptNode(prev, next *vcschema.FormProperty) {
	if prev == nil || next == nil {
		return
	}
	if next.ID == "" {
		next.ID = prev.ID
	}
	switch ns := next.Shape.(type) {
	case *vcschema.Object:
		if po := prev.Object(); po != nil {
			adoptIDs(po.Properties, ns.Properties)
		}
	case *vcschema.Array:
		pa := prev.Array()
		if pa == nil {
			return
		}
		switch it := ns.Items.(type) {
		case vcschema.Homogeneous:
			if ph, ok := pa.Items.(vcschema.Homogeneous); ok {
				adoptNode(ph.Item, it.Item)
			}
		case vcschema.Tuple:
			if pt, ok := pa.Items.(vcschema.Tuple); ok {
				for i := 0; i < len(it.Items) && i < len(pt.Items); i++ {
					adoptNode(pt.Items[i], it.Items[i])
				}
			}
		}
	}
}
