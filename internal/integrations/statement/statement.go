// Package statement converts ISO 20022 camt.053 bank statements into the
// CSV layout the backend imports: date, amount, type, description.
package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dan9191/finsight/internal/models"
	"github.com/beevik/etree"
)

// Entry is one booked statement line
type Entry struct {
	Date        string
	Amount      float64
	Currency    string
	Credit      bool
	Description string
}

// IsStatement reports whether the file looks like a camt.053 XML statement
func IsStatement(filename string, head []byte) bool {
	if !strings.HasSuffix(strings.ToLower(filename), ".xml") {
		return false
	}
	return bytes.Contains(head, []byte("BkToCstmrStmt")) || bytes.Contains(head, []byte("camt.053"))
}

// Parse extracts the booked entries of a camt.053 document
func Parse(raw []byte) ([]Entry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %v", err)
	}

	if doc.FindElement("//BkToCstmrStmt") == nil {
		return nil, fmt.Errorf("not a camt.053 statement")
	}

	ntries := doc.FindElements("//Stmt/Ntry")
	if len(ntries) == 0 {
		return nil, fmt.Errorf("no entries found in statement")
	}

	entries := make([]Entry, 0, len(ntries))
	for i, n := range ntries {
		// Pending and informational entries are not part of the balance
		if sts := n.FindElement("./Sts"); sts != nil {
			status := strings.TrimSpace(sts.Text())
			if cd := sts.FindElement("./Cd"); cd != nil {
				status = strings.TrimSpace(cd.Text())
			}
			if status != "" && status != "BOOK" {
				continue
			}
		}

		amtEl := n.FindElement("./Amt")
		if amtEl == nil {
			return nil, fmt.Errorf("entry %d: amount element not found", i+1)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(amtEl.Text()), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %d: failed to parse amount: %v", i+1, err)
		}

		indEl := n.FindElement("./CdtDbtInd")
		if indEl == nil {
			return nil, fmt.Errorf("entry %d: credit/debit indicator not found", i+1)
		}
		credit := strings.TrimSpace(indEl.Text()) == "CRDT"

		entries = append(entries, Entry{
			Date:        entryDate(n),
			Amount:      amount,
			Currency:    amtEl.SelectAttrValue("Ccy", ""),
			Credit:      credit,
			Description: entryDescription(n),
		})
	}
	return entries, nil
}

func entryDate(n *etree.Element) string {
	for _, path := range []string{"./BookgDt/Dt", "./BookgDt/DtTm", "./ValDt/Dt", "./ValDt/DtTm"} {
		if el := n.FindElement(path); el != nil {
			d := strings.TrimSpace(el.Text())
			if len(d) > 10 {
				d = d[:10]
			}
			return d
		}
	}
	return ""
}

func entryDescription(n *etree.Element) string {
	var parts []string
	for _, el := range n.FindElements(".//RmtInf/Ustrd") {
		if t := strings.TrimSpace(el.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		if el := n.FindElement("./AddtlNtryInf"); el != nil {
			parts = append(parts, strings.TrimSpace(el.Text()))
		}
	}
	return strings.Join(parts, " ")
}

// Records maps entries to signed transaction records
func Records(entries []Entry) []models.TransactionRecord {
	out := make([]models.TransactionRecord, 0, len(entries))
	for _, e := range entries {
		r := models.TransactionRecord{
			Date:        e.Date,
			Amount:      e.Amount,
			Type:        "income",
			Description: e.Description,
		}
		if !e.Credit {
			r.Amount = -e.Amount
			r.Type = "expense"
		}
		out = append(out, r)
	}
	return out
}

// ToCSV converts a camt.053 document into an importable CSV file
func ToCSV(raw []byte) ([]byte, int, error) {
	entries, err := Parse(raw)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "amount", "type", "description"}); err != nil {
		return nil, 0, fmt.Errorf("failed to write header: %w", err)
	}
	records := Records(entries)
	for _, r := range records {
		row := []string{r.Date, strconv.FormatFloat(r.Amount, 'f', 2, 64), r.Type, r.Description}
		if err := w.Write(row); err != nil {
			return nil, 0, fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), len(records), nil
}
