package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// FlexString decodes a JSON value that the portal serves either as a string
// or as a bare number. Null decodes to the empty string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

type FingerprintResponse struct {
	Data struct {
		RandomIdentity FlexString `json:"randomIdentity"`
	} `json:"data"`
}

type AuthRequest struct {
	Fingerprint string `json:"fingerprint"`
	UserName    string `json:"userName"`
	Password    string `json:"password"`
}

type AuthResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

// JournalSummary is one entry of the per-semester journal list.
type JournalSummary struct {
	ID          int64  `json:"id"`
	Discipline  string `json:"dis"`
	Type        string `json:"type"`
	TeacherName string `json:"prepodName"`
}

type JournalListResponse struct {
	Data struct {
		ReturnList []JournalSummary `json:"returnList"`
	} `json:"data"`
}

// ValueCode resolves a numeric journal cell code to a displayable value and
// its classification. The table is journal-scoped, rebuilt per detail fetch.
type ValueCode struct {
	ID     int64      `json:"id"`
	Value  FlexString `json:"value"`
	IsMark bool       `json:"isMark"`
	IsPass bool       `json:"isPass"`
}

type JournalDate struct {
	Date       string `json:"date"`
	DateID     int64  `json:"dateID"`
	HourNumber int    `json:"hourNumber"`
}

type JournalInfo struct {
	Discipline  string `json:"dis"`
	Type        string `json:"type"`
	TeacherName string `json:"teacherName"`
}

// StudentRow is one student's row in the journal grid. The portal flattens
// per-date cells into the row object keyed by dateID, so anything that is not
// an identity field lands in Cells.
type StudentRow struct {
	ID       int64
	FullName string
	Cells    map[string]string
}

func (r *StudentRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Cells = make(map[string]string, len(raw))
	for key, val := range raw {
		switch key {
		case "id":
			var id FlexString
			if err := json.Unmarshal(val, &id); err != nil {
				return err
			}
			r.ID, _ = strconv.ParseInt(id.String(), 10, 64)
		case "fio", "fullName":
			var name FlexString
			if err := json.Unmarshal(val, &name); err != nil {
				return err
			}
			if r.FullName == "" {
				r.FullName = name.String()
			}
		default:
			var cell FlexString
			if err := json.Unmarshal(val, &cell); err != nil {
				continue
			}
			if cell != "" {
				r.Cells[key] = cell.String()
			}
		}
	}
	return nil
}

// JournalPayload is the raw per-journal detail document. Data is nil when the
// portal returns an empty journal.
type JournalPayload struct {
	Data *JournalData `json:"data"`
}

type JournalData struct {
	JournalInfo  JournalInfo   `json:"journalInfo"`
	JournalVal   []ValueCode   `json:"journalVal"`
	JournalData  []StudentRow  `json:"journalData"`
	JournalDates []JournalDate `json:"journalDates"`
}

// Lesson is one decoded (date, hour) cell for the selected student.
type Lesson struct {
	Date       time.Time
	HourNumber int
	Value      string
	Kind       string
}

// Lesson kinds. The empty kind marks a cell that is neither a mark nor an
// attendance record and is still kept in the output.
const (
	KindMark = "mark"
	KindPass = "pass"
)
