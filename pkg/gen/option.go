package gen

import (
	"github.com/sirupsen/logrus"

	"github.com/go-park/weaver/pkg/cache"
	"github.com/go-park/weaver/pkg/config"
	"github.com/go-park/weaver/pkg/pointcut"
)

type (
	options struct {
		suffix       string
		context      string
		blacklist    []string
		cache        cache.Cache
		cacheOptions config.CacheOptions
		settings     config.Settings
		filters      pointcut.FilterResolver
		logger       logrus.FieldLogger
	}
	Option     interface{ apply(*options) }
	optionFunc func(g *options)
)

func (f optionFunc) apply(o *options) {
	f(o)
}

func DefaultOptions() options {
	return options{
		suffix:   config.DefaultProxySuffix,
		context:  config.DefaultContext,
		settings: config.Settings{},
		logger:   logrus.StandardLogger(),
	}
}

// WithSuffix sets the suffix appended to the target name of every proxy.
func WithSuffix(suffix string) Option {
	return optionFunc(
		func(o *options) {
			if len(suffix) > 0 {
				o.suffix = suffix
			}
		})
}

// WithContext sets the application context the proxies are built for.
func WithContext(context string) Option {
	return optionFunc(
		func(o *options) {
			if len(context) > 0 {
				o.context = context
			}
		})
}

// WithBlacklist excludes classes matching any of the patterns from proxying.
func WithBlacklist(patterns ...string) Option {
	return optionFunc(
		func(o *options) {
			o.blacklist = append(o.blacklist, filterEmptyStr(patterns...)...)
		})
}

func WithCache(c cache.Cache) Option {
	return optionFunc(
		func(o *options) {
			o.cache = c
		})
}

func WithSettings(s config.Settings) Option {
	return optionFunc(
		func(o *options) {
			if s != nil {
				o.settings = s
			}
		})
}

func WithFilters(f pointcut.FilterResolver) Option {
	return optionFunc(
		func(o *options) {
			o.filters = f
		})
}

func WithLogger(l logrus.FieldLogger) Option {
	return optionFunc(
		func(o *options) {
			if l != nil {
				o.logger = l
			}
		})
}

// WithOptions applies decoded weaver options. The cache backend they select
// is opened by Generator.Initialize unless WithCache is also given.
func WithOptions(opts config.Options) Option {
	return optionFunc(
		func(o *options) {
			WithSuffix(opts.ProxySuffix).apply(o)
			WithContext(opts.Context).apply(o)
			WithBlacklist(opts.Blacklist...).apply(o)
			o.cacheOptions = opts.Cache
		})
}
