package parsers

import "fmt"

// defaultParsers are tried in order; first CanParse wins. OFX and XLSX have
// unambiguous signatures so they go before the permissive CSV parser.
var defaultParsers = []Parser{
	NewOFXParser(),
	NewXLSXParser(),
	NewCSVParser(),
}

// GetParser selects the parser for an uploaded file from its name and the
// first bytes of content.
func GetParser(filename string, header []byte) (Parser, error) {
	for _, p := range defaultParsers {
		if p.CanParse(filename, header) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no parser available for file %q", ErrUnrecognizedFormat, filename)
}
