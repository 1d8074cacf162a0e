package sankhya

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

const (
	partnerView   = "VIEW_PARCEIROS_GUARDIAN"
	partnerOffset = "0"
	// partnerMaxRows is the single page size requested; there is no paging loop.
	partnerMaxRows = "500"
	importedValue  = "S"
)

// serviceResponse is the envelope returned by every gateway service.
type serviceResponse struct {
	ServiceName   string          `json:"serviceName"`
	Status        string          `json:"status"`
	StatusMessage string          `json:"statusMessage"`
	ResponseBody  json.RawMessage `json:"responseBody"`
}

func (r *serviceResponse) check(op string) error {
	if r.Status == statusOK {
		return nil
	}
	details, _ := json.Marshal(r)
	return &StatusError{
		Op:      op,
		Status:  r.Status,
		Message: r.StatusMessage,
		Details: formatDetails(details),
	}
}

type loadViewRequest struct {
	ServiceName string `json:"serviceName"`
	RequestBody struct {
		Query loadViewQuery `json:"query"`
	} `json:"requestBody"`
}

type loadViewQuery struct {
	ViewName string `json:"viewName"`
	Fields   struct {
		Field wrapped `json:"field"`
	} `json:"fields"`
	OffsetPage string `json:"offsetPage"`
	MaxRows    string `json:"maxRows"`
}

type wrapped struct {
	Value string `json:"$"`
}

type loadViewBody struct {
	Records struct {
		Record recordList `json:"record"`
	} `json:"records"`
}

// recordList accepts either an array of records or a single record object,
// which is how the gateway encodes a one-row result.
type recordList []map[string]wireValue

func (l *recordList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*l = nil
		return nil
	case trimmed[0] == '{':
		var one map[string]wireValue
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*l = recordList{one}
		return nil
	default:
		var many []map[string]wireValue
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*l = many
		return nil
	}
}

// wireValue decodes a {"$": value} wrapper. An empty wrapper or a null leaves
// Value nil; numbers and booleans keep their literal text.
type wireValue struct {
	Value *string
}

func (v *wireValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		raw, ok := obj["$"]
		if !ok {
			return nil
		}
		trimmed = bytes.TrimSpace(raw)
		if bytes.Equal(trimmed, []byte("null")) {
			return nil
		}
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		v.Value = &s
		return nil
	}
	s := string(trimmed)
	v.Value = &s
	return nil
}

// FetchPartners loads the first page of the partner view.
func (c *Client) FetchPartners(ctx context.Context, token string) ([]model.PartnerRecord, error) {
	const service = "CRUDServiceProvider.loadView"

	var req loadViewRequest
	req.ServiceName = service
	req.RequestBody.Query = loadViewQuery{
		ViewName:   partnerView,
		OffsetPage: partnerOffset,
		MaxRows:    partnerMaxRows,
	}
	req.RequestBody.Query.Fields.Field = wrapped{Value: strings.Join(model.PartnerViewFields, ",")}

	var resp serviceResponse
	if err := c.do(ctx, "load view", http.MethodPost, c.serviceURL(service), c.authHeaders(token), req, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("load view"); err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(resp.ResponseBody)) == 0 {
		return []model.PartnerRecord{}, nil
	}

	var body loadViewBody
	if err := json.Unmarshal(resp.ResponseBody, &body); err != nil {
		return nil, fmt.Errorf("load view: decode records: %w", err)
	}

	records := make([]model.PartnerRecord, 0, len(body.Records.Record))
	for _, wire := range body.Records.Record {
		rec := make(model.PartnerRecord, len(wire))
		for name, v := range wire {
			rec[name] = model.FieldValue{Value: v.Value}
		}
		records = append(records, rec)
	}

	return records, nil
}

type saveRequest struct {
	ServiceName string   `json:"serviceName"`
	RequestBody saveBody `json:"requestBody"`
}

type saveBody struct {
	EntityName string       `json:"entityName"`
	StandAlone bool         `json:"standAlone"`
	Fields     []string     `json:"fields"`
	Records    []saveRecord `json:"records"`
}

// saveRecord carries values keyed by position in saveBody.Fields.
type saveRecord struct {
	PK     map[string]string `json:"pk"`
	Values map[string]string `json:"values"`
}

// MarkImported sets the imported flag to "S" on the partner with the given code.
func (c *Client) MarkImported(ctx context.Context, token string, code int64) error {
	const service = "DatasetSP.save"
	op := fmt.Sprintf("mark partner %d imported", code)

	req := saveRequest{
		ServiceName: service,
		RequestBody: saveBody{
			EntityName: c.flag.Entity,
			StandAlone: false,
			Fields:     []string{c.flag.Field},
			Records: []saveRecord{{
				PK:     map[string]string{c.flag.PK: strconv.FormatInt(code, 10)},
				Values: map[string]string{"0": importedValue},
			}},
		},
	}

	var resp serviceResponse
	if err := c.do(ctx, op, http.MethodPost, c.serviceURL(service), c.authHeaders(token), req, &resp); err != nil {
		return err
	}

	return resp.check(op)
}
