package repo

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cuemby/cryptofs/pkg/apperr"
)

// Scheme names one of the repo URI grammar's backends.
type Scheme string

const (
	SchemeMem       Scheme = "mem"
	SchemeFile      Scheme = "file"
	SchemeRedis     Scheme = "redis"
	SchemeRedisUnix Scheme = "redis+unix"
	SchemeZbox      Scheme = "zbox"
)

// defaultRedisPort is used when a redis:// URI omits one.
const defaultRedisPort = 6379

// URI is the parsed form of a repo connection string.
type URI struct {
	Scheme Scheme

	Name string // mem:// backend name, zbox:// repo id
	Path string // file:// absolute path, redis+unix+ socket path

	Host string
	Port int
	DB   int

	AccessKey    string // zbox
	CacheType    string // zbox: mem | file | browser
	CacheSizeMiB int    // zbox, >= 1
	Base         string // zbox, required when CacheType == "file"
}

// ParseURI parses one of:
//
//	mem://<name>
//	file://<absolute-path>
//	redis://<host>[:port][/db]
//	redis+unix+/<path>
//	zbox://<access_key>@<repo_id>?cache_type={mem|file|browser}&cache_size=<MiB>[&base=<path>]
func ParseURI(raw string) (URI, error) {
	switch {
	case strings.HasPrefix(raw, "mem://"):
		return parseMemURI(raw)
	case strings.HasPrefix(raw, "file://"):
		return parseFileURI(raw)
	case strings.HasPrefix(raw, "redis+unix+"):
		return parseRedisUnixURI(raw)
	case strings.HasPrefix(raw, "redis://"):
		return parseRedisURI(raw)
	case strings.HasPrefix(raw, "zbox://"):
		return parseZboxURI(raw)
	default:
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: unrecognized scheme")
	}
}

func parseMemURI(raw string) (URI, error) {
	name := strings.TrimPrefix(raw, "mem://")
	if name == "" {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: mem:// requires a name")
	}
	return URI{Scheme: SchemeMem, Name: name}, nil
}

func parseFileURI(raw string) (URI, error) {
	path := strings.TrimPrefix(raw, "file://")
	if !strings.HasPrefix(path, "/") {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: file:// requires an absolute path")
	}
	return URI{Scheme: SchemeFile, Path: path}, nil
}

func parseRedisUnixURI(raw string) (URI, error) {
	path := strings.TrimPrefix(raw, "redis+unix+")
	if !strings.HasPrefix(path, "/") {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: redis+unix+ requires an absolute socket path")
	}
	return URI{Scheme: SchemeRedisUnix, Path: path}, nil
}

func parseRedisURI(raw string) (URI, error) {
	rest := strings.TrimPrefix(raw, "redis://")
	hostport, db := rest, 0
	if i := strings.Index(rest, "/"); i >= 0 {
		hostport = rest[:i]
		n, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			return URI{}, apperr.Wrap(apperr.KindInvalidUri, "repo.ParseURI: invalid db", err)
		}
		db = n
	}

	host, port := hostport, defaultRedisPort
	if i := strings.LastIndex(hostport, ":"); i >= 0 {
		host = hostport[:i]
		p, err := strconv.Atoi(hostport[i+1:])
		if err != nil {
			return URI{}, apperr.Wrap(apperr.KindInvalidUri, "repo.ParseURI: invalid port", err)
		}
		port = p
	}
	if host == "" {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: redis:// requires a host")
	}
	return URI{Scheme: SchemeRedis, Host: host, Port: port, DB: db}, nil
}

func parseZboxURI(raw string) (URI, error) {
	rest := strings.TrimPrefix(raw, "zbox://")
	atIdx := strings.Index(rest, "@")
	if atIdx <= 0 {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: zbox:// requires <access_key>@<repo_id>")
	}
	accessKey := rest[:atIdx]
	rest = rest[atIdx+1:]

	repoID, query := rest, ""
	if i := strings.Index(rest, "?"); i >= 0 {
		repoID = rest[:i]
		query = rest[i+1:]
	}
	if repoID == "" {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: zbox:// missing repo id")
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return URI{}, apperr.Wrap(apperr.KindInvalidUri, "repo.ParseURI: invalid query", err)
	}

	cacheType := values.Get("cache_type")
	if cacheType == "" {
		cacheType = "mem"
	}
	if cacheType != "mem" && cacheType != "file" && cacheType != "browser" {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: cache_type must be mem, file, or browser")
	}

	cacheSize := 1
	if s := values.Get("cache_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: cache_size must be >= 1")
		}
		cacheSize = n
	}

	base := values.Get("base")
	if cacheType == "file" && base == "" {
		return URI{}, apperr.New(apperr.KindInvalidUri, "repo.ParseURI: cache_type=file requires base")
	}

	return URI{
		Scheme:       SchemeZbox,
		AccessKey:    accessKey,
		Name:         repoID,
		CacheType:    cacheType,
		CacheSizeMiB: cacheSize,
		Base:         base,
	}, nil
}
