package auth

import "golang.org/x/oauth2/clientcredentials"

// Conf describes how outbound calls to a provider authenticate. A static
// APIKey wins over client credentials.
type Conf struct {
	APIKey       string   `json:"api_key"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether any credential is configured.
func (c Conf) Enabled() bool {
	return c.APIKey != "" || (c.ClientID != "" && c.TokenURL != "")
}

func (c Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}
