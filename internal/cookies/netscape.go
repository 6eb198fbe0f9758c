package cookies

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warpdl/cookiestore/pkg/cookie"
)

const httpOnlyPrefix = "#HttpOnly_"

// ParseNetscape reads a cookies.txt file. Lines starting with # are
// comments, except #HttpOnly_ which marks an HttpOnly cookie. An expiry of
// 0 is a session cookie. Malformed lines are skipped with a warning.
func (im *Importer) ParseNetscape(filePath string) ([]*cookie.Canonical, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open Netscape cookie file: %w", err)
	}
	defer f.Close()

	now := im.now().UTC().Truncate(time.Microsecond)
	var cookies []*cookie.Canonical

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = line[len(httpOnlyPrefix):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			im.logger().Warning("skipping malformed Netscape cookie line %d", lineNo)
			continue
		}
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			im.logger().Warning("skipping Netscape cookie line %d: invalid expiry", lineNo)
			continue
		}

		c := &cookie.Canonical{
			Name:       fields[5],
			Value:      fields[6],
			Domain:     fields[0],
			Path:       fields[2],
			Creation:   now,
			LastAccess: now,
			Secure:     strings.EqualFold(fields[3], "TRUE"),
			HttpOnly:   httpOnly,
			Priority:   cookie.PriorityMedium,
		}
		if expiry > 0 {
			c.Expiry = time.Unix(expiry, 0).UTC()
			c.HasExpires = true
			c.Persistent = true
		}
		if im.accept(c, now) {
			cookies = append(cookies, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read Netscape cookie file: %w", err)
	}
	return cookies, nil
}
