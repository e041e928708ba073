package blink

import "strconv"

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	UniqueID   string `json:"unique_id"`
	ClientName string `json:"client_name"`
	Reauth     bool   `json:"reauth"`
}

type loginResponse struct {
	Account struct {
		ID   int64  `json:"account_id"`
		Tier string `json:"tier"`
	} `json:"account"`
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

type Network struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Armed bool   `json:"armed"`
}

type networksResponse struct {
	Networks []Network `json:"networks"`
}

type Camera struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type camerasResponse struct {
	Cameras []Camera `json:"cameras"`
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
