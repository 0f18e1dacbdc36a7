package messaging

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/pixil98/go-satchel/internal/access"
)

const (
	RequestSubject = "satchel.requests"
	SessionSubject = "satchel.sessions"

	// RequestWildcard matches every participant's request subject.
	RequestWildcard = RequestSubject + ".*"

	internalUser = "satchel"
)

// ParticipantRequestSubject is the only subject a participant may publish
// requests on.
func ParticipantRequestSubject(p access.ParticipantID) string {
	return fmt.Sprintf("%s.%s", RequestSubject, p)
}

// ParticipantFromSubject recovers the sender of a request from the subject
// it was published on.
func ParticipantFromSubject(subject string) (access.ParticipantID, error) {
	token, ok := strings.CutPrefix(subject, RequestSubject+".")
	if !ok || token == "" || strings.Contains(token, ".") {
		return 0, fmt.Errorf("subject %q is not a participant request subject", subject)
	}
	id, err := strconv.ParseUint(token, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("subject %q does not name a participant", subject)
	}
	return access.ParticipantID(id), nil
}

// ParticipantUser may publish only on its own request subject and subscribe
// only to its own delivery subject.
func ParticipantUser(p access.ParticipantID, password string) *server.User {
	return &server.User{
		Username: ParticipantSubject(p),
		Password: password,
		Permissions: &server.Permissions{
			Publish:   &server.SubjectPermission{Allow: []string{ParticipantRequestSubject(p)}},
			Subscribe: &server.SubjectPermission{Allow: []string{ParticipantSubject(p)}},
		},
	}
}

// GatewayUser is the trusted frontend that reports joins, leaves and
// movement. It may publish session messages and nothing else.
func GatewayUser(username, password string) *server.User {
	return &server.User{
		Username: username,
		Password: password,
		Permissions: &server.Permissions{
			Publish:   &server.SubjectPermission{Allow: []string{SessionSubject}},
			Subscribe: &server.SubjectPermission{Deny: []string{">"}},
		},
	}
}
