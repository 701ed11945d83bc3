package core

import (
	"context"
)

type Plugins interface {
	Install(*Core) error
	Name() string
	DefaultAppid() string
	// TryLock holds key until the returned Unlock is called or ctx is done.
	// false means someone else holds it.
	TryLock(ctx context.Context, key string) (Unlock, bool, error)
	UseLimiter(key string, method string, defaultRatelimit int) Limiter
	FileUploader() FileStorage
}

// FileStorage interface defines methods for file operations.
type FileStorage interface {
	GetStaticDomain() string
	SaveFile(filePath, fileName string, content []byte) error
	DeleteFile(fullFilePath string) error
	GenGetObjectPreSignURL(url string) (string, error)
}

// Unlock releases a key taken by TryLock before returning. Calling it again is a no-op.
type Unlock func()

type Limiter interface {
	Allow() bool
}

type SetupFunc func() Plugins

func (c *Core) InstallPlugins(p Plugins) {
	if err := p.Install(c); err != nil {
		panic(err)
	}
	c.Plugins = p
}
