package directory

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

const accountDisabledFlag = 0x0002 // userAccountControl ADS_UF_ACCOUNTDISABLE

const (
	ReasonNotFound           = "not-found"
	ReasonMismatch           = "mismatch"
	ReasonInvalidCredentials = "invalid-credentials"
)

// Result reports a directory decision. A transport problem is returned as an
// error instead, so callers can tell "the directory said no" from "the
// directory could not be reached".
type Result struct {
	OK       bool
	Disabled bool
	Reason   string
	Data     map[string]string
}

type ItfDirectory interface {
	Verify(ctx DeadlineCtx, employeeID, expectedName string) (Result, error)
	Authenticate(ctx DeadlineCtx, employeeID, password string) (Result, error)
}

// DeadlineCtx carries the remaining directory sub-budget for one call.
type DeadlineCtx struct {
	Deadline time.Duration
}

type directoryClient struct {
	serverURL    string
	baseDN       string
	bindDN       string
	bindPassword string
}

func New() ItfDirectory {
	return &directoryClient{
		serverURL:    os.Getenv("AD_SERVER_URL"),
		baseDN:       os.Getenv("AD_BASE_DN"),
		bindDN:       os.Getenv("AD_BIND_DN"),
		bindPassword: os.Getenv("AD_BIND_PASSWORD"),
	}
}

func (d *directoryClient) connect(deadline time.Duration) (*ldap.Conn, error) {
	if deadline <= 0 {
		return nil, errors.New("directory budget exhausted")
	}

	dialer := &net.Dialer{Timeout: deadline}
	conn, err := ldap.DialURL(d.serverURL,
		ldap.DialWithDialer(dialer),
		ldap.DialWithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial directory: %w", err)
	}

	conn.SetTimeout(deadline)

	if err := conn.Bind(d.bindDN, d.bindPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind service account: %w", err)
	}

	return conn, nil
}

func (d *directoryClient) findEmployee(conn *ldap.Conn, employeeID string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		d.baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, 0, false,
		fmt.Sprintf("(&(objectClass=user)(sAMAccountName=%s))", ldap.EscapeFilter(employeeID)),
		[]string{"distinguishedName", "displayName", "department", "mail", "userAccountControl"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) && res != nil && len(res.Entries) > 0 {
			return res.Entries[0], nil
		}
		return nil, fmt.Errorf("failed to search directory: %w", err)
	}

	if len(res.Entries) == 0 {
		return nil, nil
	}

	return res.Entries[0], nil
}

// Verify checks the OCR-extracted identity against the directory record.
func (d *directoryClient) Verify(ctx DeadlineCtx, employeeID, expectedName string) (Result, error) {
	conn, err := d.connect(ctx.Deadline)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	entry, err := d.findEmployee(conn, employeeID)
	if err != nil {
		return Result{}, err
	}
	if entry == nil {
		return Result{Reason: ReasonNotFound}, nil
	}

	if disabled(entry) {
		return Result{Disabled: true, Data: entryData(entry)}, nil
	}

	if !nameMatches(entry.GetAttributeValue("displayName"), expectedName) {
		return Result{Reason: ReasonMismatch, Data: entryData(entry)}, nil
	}

	return Result{OK: true, Data: entryData(entry)}, nil
}

// Authenticate verifies the employee's directory password with a user bind.
func (d *directoryClient) Authenticate(ctx DeadlineCtx, employeeID, password string) (Result, error) {
	if password == "" {
		return Result{Reason: ReasonInvalidCredentials}, nil
	}

	conn, err := d.connect(ctx.Deadline)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	entry, err := d.findEmployee(conn, employeeID)
	if err != nil {
		return Result{}, err
	}
	if entry == nil {
		return Result{Reason: ReasonNotFound}, nil
	}

	if disabled(entry) {
		return Result{Disabled: true, Data: entryData(entry)}, nil
	}

	if err := conn.Bind(entry.DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return Result{Reason: ReasonInvalidCredentials, Data: entryData(entry)}, nil
		}
		return Result{}, fmt.Errorf("failed to bind employee: %w", err)
	}

	return Result{OK: true, Data: entryData(entry)}, nil
}

func disabled(entry *ldap.Entry) bool {
	var uac int
	fmt.Sscanf(entry.GetAttributeValue("userAccountControl"), "%d", &uac)
	return uac&accountDisabledFlag != 0
}

func nameMatches(directoryName, expectedName string) bool {
	a := strings.Join(strings.Fields(directoryName), " ")
	b := strings.Join(strings.Fields(expectedName), " ")
	return a != "" && strings.EqualFold(a, b)
}

func entryData(entry *ldap.Entry) map[string]string {
	return map[string]string{
		"display_name": entry.GetAttributeValue("displayName"),
		"department":   entry.GetAttributeValue("department"),
		"mail":         entry.GetAttributeValue("mail"),
	}
}
