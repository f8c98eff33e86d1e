package extractor

import (
	"path/filepath"
	"strings"
)

// UploadedFile is the raw input handed over by the presentation layer.
// It only lives for the duration of extraction.
type UploadedFile struct {
	Name  string
	Bytes []byte
}

func (f UploadedFile) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Document is one logical unit of extracted text. A single file may
// produce more than one document (e.g. one per page).
type Document struct {
	Text       string
	SourceFile string
	Metadata   map[string]string
}

// SupportedExtensions lists every file type the pipeline accepts for
// upload. The remote parser handles all of them; the local reader
// handles the text-like subset plus PDF.
var SupportedExtensions = map[string]struct{}{
	".pdf": {}, ".602": {}, ".abw": {}, ".cgm": {}, ".cwk": {}, ".doc": {},
	".docx": {}, ".docm": {}, ".dot": {}, ".dotm": {}, ".hwp": {}, ".key": {},
	".lwp": {}, ".mw": {}, ".mcw": {}, ".pages": {}, ".pbd": {}, ".ppt": {},
	".pptm": {}, ".pptx": {}, ".pot": {}, ".potm": {}, ".potx": {}, ".rtf": {},
	".sda": {}, ".sdd": {}, ".sdp": {}, ".sdw": {}, ".sgl": {}, ".sti": {},
	".sxi": {}, ".sxw": {}, ".stw": {}, ".sxg": {}, ".txt": {}, ".uof": {},
	".uop": {}, ".uot": {}, ".vor": {}, ".wpd": {}, ".wps": {}, ".xml": {},
	".zabw": {}, ".epub": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".bmp": {}, ".svg": {}, ".tiff": {}, ".webp": {}, ".htm": {}, ".html": {},
	".xlsx": {}, ".xls": {}, ".xlsm": {}, ".xlsb": {}, ".xlw": {}, ".csv": {},
	".dif": {}, ".sylk": {}, ".slk": {}, ".prn": {}, ".numbers": {}, ".et": {},
	".ods": {}, ".fods": {}, ".uos1": {}, ".uos2": {}, ".dbf": {}, ".wk1": {},
	".wk2": {}, ".wk3": {}, ".wk4": {}, ".wks": {}, ".123": {}, ".wq1": {},
	".wq2": {}, ".wb1": {}, ".wb2": {}, ".wb3": {}, ".qpw": {}, ".xlr": {},
	".eth": {}, ".tsv": {}, ".md": {}, ".markdown": {},
}

func IsSupported(name string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
