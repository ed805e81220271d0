package model

// ItemType identifies the kind of resource a gophermap line points at.
// The set is closed: every code that is not in the table maps to ItemTypeUnknown.
type ItemType int

const (
	// ItemTypeUnknown is used for absent or unrecognized type codes.
	ItemTypeUnknown ItemType = iota
	// ItemTypeTextFile is a plain text document ('0').
	ItemTypeTextFile
	// ItemTypeMenu is a gophermap directory listing ('1').
	ItemTypeMenu
	// ItemTypeCcsoNameserver is a CCSO phone-book server ('2').
	ItemTypeCcsoNameserver
	// ItemTypeErrorCode is an error line inside a menu ('3').
	ItemTypeErrorCode
	// ItemTypeBinHex is a BinHex-encoded Macintosh file ('4').
	ItemTypeBinHex
	// ItemTypeDosFile is a DOS binary archive ('5').
	ItemTypeDosFile
	// ItemTypeUuEncoded is a uuencoded file ('6').
	ItemTypeUuEncoded
	// ItemTypeFullTextSearch is an index-search server ('7').
	ItemTypeFullTextSearch
	// ItemTypeTelnet is a text-based telnet session ('8').
	ItemTypeTelnet
	// ItemTypeBinaryFile is a generic binary file ('9').
	ItemTypeBinaryFile
	// ItemTypeMirror is a redundant mirror of the previous server ('+').
	ItemTypeMirror
	// ItemTypeGif is a GIF image ('g').
	ItemTypeGif
	// ItemTypeImage is an image of unspecified format ('I').
	ItemTypeImage
	// ItemTypeTelnet3270 is a tn3270 session ('T').
	ItemTypeTelnet3270
	// ItemTypeHTML is an HTML document, often a "URL:" link ('h').
	ItemTypeHTML
	// ItemTypeInformation is an informational, non-selectable line ('i').
	ItemTypeInformation
	// ItemTypeSound is a sound file ('s').
	ItemTypeSound
)

// itemTypeByCode is the static code table. Lookups never fail; a miss is Unknown.
var itemTypeByCode = map[byte]ItemType{
	'0': ItemTypeTextFile,
	'1': ItemTypeMenu,
	'2': ItemTypeCcsoNameserver,
	'3': ItemTypeErrorCode,
	'4': ItemTypeBinHex,
	'5': ItemTypeDosFile,
	'6': ItemTypeUuEncoded,
	'7': ItemTypeFullTextSearch,
	'8': ItemTypeTelnet,
	'9': ItemTypeBinaryFile,
	'+': ItemTypeMirror,
	'g': ItemTypeGif,
	'I': ItemTypeImage,
	'T': ItemTypeTelnet3270,
	'h': ItemTypeHTML,
	'i': ItemTypeInformation,
	's': ItemTypeSound,
}

// codeByItemType is the inverse of itemTypeByCode.
var codeByItemType = func() map[ItemType]byte {
	m := make(map[ItemType]byte, len(itemTypeByCode))
	for code, t := range itemTypeByCode {
		m[t] = code
	}
	return m
}()

// itemTypeNames holds the display names used by String.
var itemTypeNames = map[ItemType]string{
	ItemTypeUnknown:        "unknown",
	ItemTypeTextFile:       "text",
	ItemTypeMenu:           "menu",
	ItemTypeCcsoNameserver: "ccso",
	ItemTypeErrorCode:      "error",
	ItemTypeBinHex:         "binhex",
	ItemTypeDosFile:        "dos",
	ItemTypeUuEncoded:      "uuencoded",
	ItemTypeFullTextSearch: "search",
	ItemTypeTelnet:         "telnet",
	ItemTypeBinaryFile:     "binary",
	ItemTypeMirror:         "mirror",
	ItemTypeGif:            "gif",
	ItemTypeImage:          "image",
	ItemTypeTelnet3270:     "tn3270",
	ItemTypeHTML:           "html",
	ItemTypeInformation:    "info",
	ItemTypeSound:          "sound",
}

// ItemTypeFromCode returns the ItemType for a one-character type code.
func ItemTypeFromCode(code byte) ItemType {
	if t, ok := itemTypeByCode[code]; ok {
		return t
	}
	return ItemTypeUnknown
}

// IsItemTypeCode reports whether code is one of the known type codes.
func IsItemTypeCode(code byte) bool {
	_, ok := itemTypeByCode[code]
	return ok
}

// Code returns the canonical type code. Unknown has no code and reports false.
func (t ItemType) Code() (byte, bool) {
	code, ok := codeByItemType[t]
	return code, ok
}

// String returns a short lowercase name for the type.
func (t ItemType) String() string {
	if name, ok := itemTypeNames[t]; ok {
		return name
	}
	return unknownStr
}

// IsBinary reports whether content of this type should go through a download
// path rather than being displayed inline.
func (t ItemType) IsBinary() bool {
	switch t {
	case ItemTypeBinHex, ItemTypeDosFile, ItemTypeUuEncoded, ItemTypeBinaryFile,
		ItemTypeGif, ItemTypeImage, ItemTypeSound:
		return true
	default:
		return false
	}
}

// IsImage reports whether the type is one of the image types.
func (t ItemType) IsImage() bool {
	return t == ItemTypeGif || t == ItemTypeImage
}

// MarshalText encodes the type by name so reports stay readable.
func (t ItemType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// unknownStr is the string representation for unknown values.
const unknownStr = "unknown"
