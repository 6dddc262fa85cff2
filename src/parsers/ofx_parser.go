package parsers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/username/tesoreria/backend/src/models"
)

// OFXParser parses OFX/QFX bank statement downloads. Both the v1 SGML and
// v2 XML flavors are handled by ofxgo.
type OFXParser struct{}

func NewOFXParser() *OFXParser { return &OFXParser{} }

func (p *OFXParser) Name() string { return "ofx" }

func (p *OFXParser) CanParse(filename string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}
	headerUpper := strings.ToUpper(string(header))
	return strings.Contains(headerUpper, "OFXHEADER") ||
		strings.Contains(headerUpper, "<?OFX") ||
		strings.Contains(headerUpper, "<OFX>")
}

func (p *OFXParser) Parse(r io.Reader) (*ParseResult, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding OFX: %v", ErrUnrecognizedFormat, err)
	}

	tranList, err := transactionList(resp)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	for i, txn := range tranList.Transactions {
		result.TotalRows++

		description := strings.TrimSpace(txn.Name.String())
		if description == "" {
			description = strings.TrimSpace(txn.Memo.String())
		}
		if description == "" {
			result.RowErrors = append(result.RowErrors, RowError{
				Line:   i + 1,
				Reason: fmt.Sprintf("transaction %s has no name or memo", txn.FiTID.String()),
			})
			continue
		}

		pm := models.ParsedMovement{
			Date:        txn.DtPosted.Time,
			Amount:      decimal.NewFromBigRat(&txn.TrnAmt.Rat, 2),
			Description: description,
			Reference:   txn.FiTID.String(),
		}
		if txn.Payee != nil {
			pm.Counterparty = strings.TrimSpace(txn.Payee.Name.String())
		}
		result.Movements = append(result.Movements, pm)
	}
	return result, nil
}

// transactionList pulls the statement transaction list out of whichever
// message set the response carries. Investment statements are not supported;
// this engine only tracks cash accounts.
func transactionList(resp *ofxgo.Response) (*ofxgo.TransactionList, error) {
	if len(resp.Bank) > 0 {
		stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected bank statement type %T", ErrUnrecognizedFormat, resp.Bank[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("%w: bank statement has no transaction list", ErrUnrecognizedFormat)
		}
		return stmt.BankTranList, nil
	}
	if len(resp.CreditCard) > 0 {
		stmt, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected credit card statement type %T", ErrUnrecognizedFormat, resp.CreditCard[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("%w: credit card statement has no transaction list", ErrUnrecognizedFormat)
		}
		return stmt.BankTranList, nil
	}
	return nil, fmt.Errorf("%w: OFX file carries no bank or credit card statement", ErrUnrecognizedFormat)
}
