package parsers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ofxFixture = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250630120000
<LANGUAGE>ENG
<FI>
<ORG>BANCO
<FID>01234
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>0182
<ACCTID>ES9121000418450200051332
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250601
<DTEND>20250630
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250605
<TRNAMT>-300.00
<FITID>TX1
<NAME>Traspaso a ahorro
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250610
<TRNAMT>1200.00
<FITID>TX2
<NAME>Nomina junio
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>900.00
<DTASOF>20250630
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestOFXParserBankStatement(t *testing.T) {
	p := NewOFXParser()
	res, err := p.Parse(strings.NewReader(ofxFixture))
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRows)
	assert.Empty(t, res.RowErrors)
	require.Len(t, res.Movements, 2)

	out := res.Movements[0]
	assert.Equal(t, "-300", out.Amount.String())
	assert.Equal(t, "Traspaso a ahorro", out.Description)
	assert.Equal(t, "TX1", out.Reference)
	assert.Equal(t, 2025, out.Date.Year())
	assert.Equal(t, time.June, out.Date.Month())
	assert.Equal(t, 5, out.Date.Day())

	in := res.Movements[1]
	assert.Equal(t, "1200", in.Amount.String())
	assert.Equal(t, "TX2", in.Reference)
}

func TestOFXParserCanParse(t *testing.T) {
	p := NewOFXParser()
	assert.True(t, p.CanParse("extracto.ofx", []byte("OFXHEADER:100")))
	assert.True(t, p.CanParse("extracto.qfx", []byte("<OFX>")))
	assert.False(t, p.CanParse("extracto.csv", []byte("OFXHEADER:100")))
	assert.False(t, p.CanParse("extracto.ofx", []byte("Fecha;Importe")))
}

func TestOFXParserRejectsGarbage(t *testing.T) {
	_, err := NewOFXParser().Parse(strings.NewReader("this is not an ofx file"))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}
