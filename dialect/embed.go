package dialect

import _ "embed"

// CommonXML is a small bundled dialect (HEARTBEAT plus one v2-only message
// with extension fields) used as a fixture for tests that want a
// realistic, non-empty catalog without reading from disk. cmd/mavbridge
// does not use it; it loads the files listed in its dialect.paths setting.
//
//go:embed assets/common.xml
var CommonXML []byte
