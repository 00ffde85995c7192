package unifi

// Controller API paths, relative to the configured base URL
const (
	loginPath  = "/api/login"
	logoutPath = "/api/logout"
	devmgrPath = "/api/s/%s/cmd/devmgr"
)

// cmdPowerCycle is the device manager command that toggles PoE on a port
const cmdPowerCycle = "power-cycle"

// rcOK is the meta.rc value of a successful call
const rcOK = "ok"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type devmgrRequest struct {
	Cmd     string `json:"cmd"`
	MAC     string `json:"mac"`
	PortIdx int    `json:"port_idx"`
}

// Meta is the status block every controller response carries
type Meta struct {
	RC  string `json:"rc"`
	Msg string `json:"msg,omitempty"`
}

// envelope is the common response shape: {"meta": {...}, "data": [...]}
type envelope struct {
	Meta Meta          `json:"meta"`
	Data []interface{} `json:"data"`
}
