package types

import (
	"strconv"
	"strings"
)

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID || typesIn == nil {
		return "?"
	}
	if depth > 6 {
		return "..."
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindUnit:
		return "()"
	case KindInt:
		return numberLabel("int", tt.Width)
	case KindUint:
		return numberLabel("uint", tt.Width)
	case KindFloat:
		return numberLabel("float", tt.Width)
	case KindVec:
		return "Vec<" + labelDepth(typesIn, tt.Elem, depth+1) + ">"
	case KindMap:
		return "Map<" + labelDepth(typesIn, tt.Key, depth+1) + ", " + labelDepth(typesIn, tt.Elem, depth+1) + ">"
	case KindReference:
		if tt.Mutable {
			return "&mut " + labelDepth(typesIn, tt.Elem, depth+1)
		}
		return "&" + labelDepth(typesIn, tt.Elem, depth+1)
	case KindTuple:
		info, ok := typesIn.TupleInfo(id)
		if !ok {
			return "(?)"
		}
		parts := make([]string, len(info.Elems))
		for i, e := range info.Elems {
			parts[i] = labelDepth(typesIn, e, depth+1)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindFn:
		info, ok := typesIn.FnInfo(id)
		if !ok {
			return "fn(?)"
		}
		parts := make([]string, len(info.Params))
		for i, p := range info.Params {
			parts[i] = labelDepth(typesIn, p, depth+1)
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + labelDepth(typesIn, info.Result, depth+1)
	case KindStruct, KindEnum, KindGeneric, KindOpaque:
		if info, ok := typesIn.NominalInfo(id); ok && info.Name != "" {
			return info.Name
		}
		return tt.Kind.String()
	default:
		return tt.Kind.String()
	}
}

func numberLabel(base string, w Width) string {
	if w == WidthAny {
		return base
	}
	return base + strconv.Itoa(int(w))
}
