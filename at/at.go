package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "
	CtrlZ  = "\x1A"

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	Download   = "DOWNLOAD"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcHTTPAction = "+HTTPACTION:"

	// Intermediate result prefixes
	HTTPReadHeader = "+HTTPREAD:"
)

// Basic and PDP bring-up commands.
const (
	CmdAt            = "AT"
	CmdEchoOff       = "ATE0"
	CmdVerboseErrors = "AT+CMEE=2"
	CmdAttachQuery   = "AT+CGATT?"
	CmdAttach        = "AT+CGATT=1"
	CmdPDPContext    = `AT+CGDCONT=1,"IP","%s"`
	CmdPDPAuth       = `AT+CGAUTH=1,1,"%s","%s"`
	CmdActivate      = "AT+CGACT=1,1"
	CmdNetOpen       = "AT+NETOPEN"
	CmdPDPAddress    = "AT+CGPADDR=1"
)

// HTTP service commands. The parameterized entries are fmt format strings.
const (
	CmdHTTPTerm     = "AT+HTTPTERM"
	CmdHTTPInit     = "AT+HTTPINIT"
	CmdHTTPSSL      = "AT+HTTPSSL=%d"
	CmdHTTPURL      = `AT+HTTPPARA="URL","%s"`
	CmdHTTPReadMode = `AT+HTTPPARA="READMODE",1`
	CmdHTTPContent  = `AT+HTTPPARA="CONTENT","%s"`
	CmdHTTPUserData = `AT+HTTPPARA="USERDATA","%s"`
	CmdHTTPData     = "AT+HTTPDATA=%d,%d"
	CmdHTTPAction   = "AT+HTTPACTION=%d"
	CmdHTTPRead     = "AT+HTTPREAD=0,%d"
)

// Method is the verb code carried by AT+HTTPACTION and echoed back in the
// +HTTPACTION result. The values follow the modem's numbering.
type Method int

const (
	MethodGet  Method = 0
	MethodPost Method = 1
	MethodPut  Method = 4
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	}
	return "UNKNOWN"
}

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+HTTPREAD: ...)
	TypePrompt                     // Data input prompt
)
