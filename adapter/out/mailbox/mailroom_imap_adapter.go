package mailbox

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/pkg/apperr"
	"mailroom_server/pkg/logger"
)

// IMAPAdapter implements out.MailSource against an IMAP mailbox, over
// implicit TLS or STARTTLS.
//
// The adapter fetches unseen mail without touching flags; \Seen is added
// only when the orchestrator confirms the message was routed.
type IMAPAdapter struct {
	host       string
	port       int
	username   string
	password   string
	folder     string
	batchLimit int
	startTLS   bool

	client *imapclient.Client
}

// Config for the IMAP adapter.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Folder     string
	BatchLimit int
	StartTLS   bool // upgrade a plaintext connection instead of implicit TLS
}

func NewIMAPAdapter(cfg Config) *IMAPAdapter {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	if cfg.Port == 0 {
		if cfg.StartTLS {
			cfg.Port = 143
		} else {
			cfg.Port = 993
		}
	}
	return &IMAPAdapter{
		host:       cfg.Host,
		port:       cfg.Port,
		username:   cfg.Username,
		password:   cfg.Password,
		folder:     cfg.Folder,
		batchLimit: cfg.BatchLimit,
		startTLS:   cfg.StartTLS,
	}
}

// Connect dials, authenticates and selects the monitored folder.
func (a *IMAPAdapter) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.host, a.port)
	var client *imapclient.Client
	var err error
	if a.startTLS {
		client, err = imapclient.DialStartTLS(addr, nil)
	} else {
		client, err = imapclient.DialTLS(addr, nil)
	}
	if err != nil {
		return apperr.MailSourceError("dial "+addr, err)
	}

	if err := client.Login(a.username, a.password).Wait(); err != nil {
		client.Close()
		return apperr.MailSourceError("login", err)
	}

	if _, err := client.Select(a.folder, nil).Wait(); err != nil {
		client.Close()
		return apperr.MailSourceError("select "+a.folder, err)
	}

	a.client = client
	logger.Debug("IMAP connected to %s, folder %s", addr, a.folder)
	return nil
}

// ListUnread fetches up to the batch limit of unseen messages, fully decoded.
func (a *IMAPAdapter) ListUnread(ctx context.Context) ([]domain.InboundMessage, error) {
	if a.client == nil {
		return nil, apperr.MailSourceError("list unread", fmt.Errorf("not connected"))
	}

	searchData, err := a.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, apperr.MailSourceError("search unseen", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > a.batchLimit {
		uids = uids[:a.batchLimit]
	}

	section := &imap.FetchItemBodySection{}
	fetched, err := a.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, apperr.MailSourceError("fetch", err)
	}

	messages := make([]domain.InboundMessage, 0, len(fetched))
	for _, buf := range fetched {
		raw := buf.FindBodySection(section)
		if len(raw) == 0 {
			logger.Warn("Empty body section for UID %d, skipping", buf.UID)
			continue
		}
		msg, err := DecodeMessage(raw, uint32(buf.UID))
		if err != nil {
			logger.WithError(err).Warn("Undecodable message at UID %d, skipping", buf.UID)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// MarkProcessed flags one message as seen.
func (a *IMAPAdapter) MarkProcessed(ctx context.Context, uid uint32) error {
	if a.client == nil {
		return apperr.MailSourceError("mark processed", fmt.Errorf("not connected"))
	}
	cmd := a.client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return apperr.MailSourceError("store seen", err)
	}
	return nil
}

// MoveToFolder files a message into another folder (dead letter, archive).
func (a *IMAPAdapter) MoveToFolder(ctx context.Context, uid uint32, folder string) error {
	if a.client == nil {
		return apperr.MailSourceError("move", fmt.Errorf("not connected"))
	}
	if _, err := a.client.Move(imap.UIDSetNum(imap.UID(uid)), folder).Wait(); err != nil {
		return apperr.MailSourceError("move to "+folder, err)
	}
	return nil
}

// Disconnect logs out; errors are swallowed, the connection dies either way.
func (a *IMAPAdapter) Disconnect() error {
	if a.client == nil {
		return nil
	}
	if err := a.client.Logout().Wait(); err != nil {
		logger.WithError(err).Debug("IMAP logout failed")
	}
	err := a.client.Close()
	a.client = nil
	return err
}

var _ out.MailSource = (*IMAPAdapter)(nil)
