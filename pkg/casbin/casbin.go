package casbin

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v3"
	casbinmodel "github.com/casbin/casbin/v3/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	rediswatcher "github.com/casbin/redis-watcher/v2"

	"github.com/yuvalk87/mofet-forms-app/pkg/database"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
	pkgredis "github.com/yuvalk87/mofet-forms-app/pkg/redis"
)

// rbacModel RBAC模型：sub(用户/角色), obj(资源), act(动作)，admin全放行
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")) || g(r.sub, "role:admin")
`

var (
	enforcer     *casbin.SyncedCachedEnforcer
	enforcerOnce sync.Once
	enforcerMu   sync.RWMutex // 保护 enforcer 的读写
)

// Init 初始化Casbin权限管理器
func Init() error {
	var initErr error
	enforcerOnce.Do(func() {
		initErr = initEnforcer()
	})
	return initErr
}

// initEnforcer 初始化Casbin执行器
func initEnforcer() error {
	// 使用GORM适配器，将策略存储到数据库
	adapter, err := gormadapter.NewAdapterByDB(database.DB)
	if err != nil {
		logger.Errorf("初始化Casbin适配器失败: %v", err)
		return err
	}

	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		logger.Errorf("加载Casbin模型失败: %v", err)
		return err
	}

	// 创建带缓存的同步执行器
	// SyncedCachedEnforcer 解决单机多线程问题，多机器同步通过 Watcher 实现
	enforcer, err = casbin.NewSyncedCachedEnforcer(m, adapter)
	if err != nil {
		logger.Errorf("创建Casbin执行器失败: %v", err)
		return err
	}

	// 设置缓存过期时间（1小时）
	enforcer.SetExpireTime(60 * 60)

	// 配置Watcher实现多机器同步
	// 机器A更新权限 → Watcher发布消息到Redis → 其他机器收到通知自动重新加载
	// 如果Redis未启用，权限变更后需要手动调用 ReloadPolicy()
	if pkgredis.IsEnabled() {
		redisClient := pkgredis.GetClient()
		if redisClient == nil {
			logger.Warn("Redis客户端不可用，使用数据库同步模式")
		} else {
			redisAddr := redisClient.Options().Addr
			if redisAddr == "" {
				redisAddr = "localhost:6379"
			}

			watcher, err := rediswatcher.NewWatcher(redisAddr, rediswatcher.WatcherOptions{})
			if err != nil {
				logger.Warnf("创建Redis Watcher失败: %v，将使用数据库同步模式（降级）", err)
			} else if err := enforcer.SetWatcher(watcher); err != nil {
				logger.Warnf("设置Watcher失败: %v，将使用数据库同步模式（降级）", err)
			} else {
				watcher.SetUpdateCallback(func(msg string) {
					logger.Infof("收到策略更新通知: %s，重新加载策略", msg)
					if err := enforcer.LoadPolicy(); err != nil {
						logger.Errorf("重新加载策略失败: %v", err)
					} else {
						enforcer.InvalidateCache()
					}
				})
				logger.Infof("✅ Redis Watcher已配置（地址: %s），支持多机器权限同步", redisAddr)
			}
		}
	} else {
		logger.Info("ℹ️  Redis未启用，使用数据库同步模式")
	}

	// 加载策略
	if err := enforcer.LoadPolicy(); err != nil {
		logger.Errorf("加载Casbin策略失败: %v", err)
		return err
	}

	logger.Info("Casbin权限管理器初始化成功")
	return nil
}

// GetEnforcer 获取Casbin执行器（线程安全）
func GetEnforcer() *casbin.SyncedCachedEnforcer {
	enforcerMu.RLock()
	defer enforcerMu.RUnlock()
	return enforcer
}

// CheckPermission 权限检查
func CheckPermission(sub, obj, act string) (bool, error) {
	e := GetEnforcer()
	if e == nil {
		return false, fmt.Errorf("casbin enforcer not initialized")
	}
	return e.Enforce(sub, obj, act)
}

// AssignRole 给用户绑定角色（g策略）
func AssignRole(userID, role string) error {
	e := GetEnforcer()
	if e == nil {
		return fmt.Errorf("casbin enforcer not initialized")
	}
	_, err := e.AddGroupingPolicy(userID, role)
	return err
}

// RevokeRole 解绑用户角色
func RevokeRole(userID, role string) error {
	e := GetEnforcer()
	if e == nil {
		return fmt.Errorf("casbin enforcer not initialized")
	}
	_, err := e.RemoveGroupingPolicy(userID, role)
	return err
}

// ReloadPolicy 重新加载策略（Redis未启用时权限变更后调用）
func ReloadPolicy() error {
	e := GetEnforcer()
	if e == nil {
		return fmt.Errorf("casbin enforcer not initialized")
	}
	if err := e.LoadPolicy(); err != nil {
		return err
	}
	e.InvalidateCache()
	return nil
}
