package patreon

type relationship struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type resource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Email                        string `json:"email"`
		FullName                     string `json:"full_name"`
		PatronStatus                 string `json:"patron_status"`
		LastChargeStatus             string `json:"last_charge_status"`
		CurrentlyEntitledAmountCents int    `json:"currently_entitled_amount_cents"`
	} `json:"attributes"`
	Relationships struct {
		Campaign               relationship `json:"campaign"`
		CurrentlyEntitledTiers struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"currently_entitled_tiers"`
	} `json:"relationships"`
}

// identityDocument is the JSON:API response of the identity endpoint.
type identityDocument struct {
	Data     resource   `json:"data"`
	Included []resource `json:"included"`
}

// activeMember returns the first active membership, restricted to
// campaignID when it is set.
func (d *identityDocument) activeMember(campaignID string) (resource, bool) {
	for _, r := range d.Included {
		if r.Type != "member" {
			continue
		}
		if campaignID != "" && r.Relationships.Campaign.Data.ID != campaignID {
			continue
		}
		if r.Attributes.PatronStatus == "active_patron" {
			return r, true
		}
	}
	return resource{}, false
}
