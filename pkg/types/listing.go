package types

import "encoding/json"

// RawListing is one unvalidated record emitted by a vendor collection task.
// It has no identity beyond its title and the vendor the task declares; it is
// parsed and deduplicated before anything is persisted.
type RawListing struct {
	Title     string   `json:"title"`
	PriceText string   `json:"price"`
	Category  string   `json:"category"`
	Link      string   `json:"link"`
	Thumbnail string   `json:"thumbnail"`
	Photos    URLList  `json:"photos"`
}

// URLList accepts either a single URL string or an array of URL strings,
// since collection scripts are inconsistent about the photos field.
type URLList []string

func (u *URLList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*u = nil
		} else {
			*u = URLList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*u = URLList(many)
	return nil
}
