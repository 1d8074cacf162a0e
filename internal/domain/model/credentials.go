package model

// Credentials holds the secrets needed for one sync run: the four Sankhya API
// login headers and the destination database login.
type Credentials struct {
	Token    string
	AppKey   string
	Username string
	Password string

	DBHost     string
	DBName     string
	DBUser     string
	DBPassword string
}
