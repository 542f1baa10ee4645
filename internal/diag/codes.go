package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Ownership inference (4000-series)
	OwnInfo              Code = 4000
	OwnConflict          Code = 4001
	OwnEscapingBorrow    Code = 4002
	OwnUnknownCapability Code = 4003
	OwnUseAfterMove      Code = 4004
	OwnMutThroughShared  Code = 4005

	// Ошибки I/O
	IOLoadFileError Code = 5001
	WireDecodeError Code = 5002
	WireVersion     Code = 5003

	// Observability
	ObsTimings Code = 6001

	// Driver
	DrvInternal Code = 7001
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	OwnInfo:              "Ownership information",
	OwnConflict:          "Conflicting ownership requirements",
	OwnEscapingBorrow:    "Borrowed value escapes its source",
	OwnUnknownCapability: "Type has no capability entry",
	OwnUseAfterMove:      "Value used after move",
	OwnMutThroughShared:  "Mutation through a shared borrow",
	IOLoadFileError:      "I/O load file error",
	WireDecodeError:      "Malformed program input",
	WireVersion:          "Unsupported program format version",
	ObsTimings:           "Pipeline timings",
	DrvInternal:          "Internal analysis failure",
}

// Kind groups codes into the three classes consumers care about.
type Kind uint8

const (
	KindOther Kind = iota
	KindOwnershipConflict
	KindEscapingBorrow
	KindUnknownCapability
)

func (k Kind) String() string {
	switch k {
	case KindOwnershipConflict:
		return "OwnershipConflict"
	case KindEscapingBorrow:
		return "EscapingBorrow"
	case KindUnknownCapability:
		return "UnknownCapability"
	}
	return "Other"
}

// Kind maps a code onto its diagnostic class. Use-after-move and mutation
// through a shared borrow are reported as ownership conflicts.
func (c Code) Kind() Kind {
	switch c {
	case OwnConflict, OwnUseAfterMove, OwnMutThroughShared:
		return KindOwnershipConflict
	case OwnEscapingBorrow:
		return KindEscapingBorrow
	case OwnUnknownCapability:
		return KindUnknownCapability
	}
	return KindOther
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OWN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("DRV%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
