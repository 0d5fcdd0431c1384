package registry

import (
	"fmt"
	"strings"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

// Key layout under the prefix:
//
//	resources/<resource>/status          primary attachment
//	resources/<resource>/servers/<srv>   additional attachments
//	proxy/<srv>
//	locks/<key>
func resourcesPrefix(prefix string) string {
	return fmt.Sprintf("%s/resources/", strings.TrimRight(prefix, "/"))
}

func resourcePrefix(prefix, resourceID string) string {
	return resourcesPrefix(prefix) + resourceID + "/"
}

func attachmentKey(prefix string, att domain.Attachment) string {
	if att.Primary {
		return resourcePrefix(prefix, att.ResourceID) + "status"
	}
	return resourcePrefix(prefix, att.ResourceID) + "servers/" + att.ServerID
}

func proxyKey(prefix, serverID string) string {
	return fmt.Sprintf("%s/proxy/%s", strings.TrimRight(prefix, "/"), serverID)
}

func lockKey(prefix, key string) string {
	return fmt.Sprintf("%s/locks/%s", strings.TrimRight(prefix, "/"), key)
}
