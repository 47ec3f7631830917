package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	appcategory "github.com/xiebiao/library/internal/application/category"
	"github.com/xiebiao/library/internal/application/shared"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/user"
)

// cliActor 管理命令的调用者身份
var cliActor = user.Identity{Username: "cli", Role: user.RoleEmployee}

// adminEnv 管理命令共用的存储与执行器
type adminEnv struct {
	storage  *storage
	executor *shared.Executor
	cleanup  func()
}

func newAdminEnv() (*adminEnv, error) {
	cfg, log, err := bootstrap()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "memory" {
		return nil, errors.New("memory驱动的数据只存在于serve进程内，管理命令无法使用")
	}

	st, closeStorage, err := provideStorage(cfg, log)
	if err != nil {
		return nil, err
	}
	dispatcher, closeDispatcher, err := provideDispatcher(cfg, log)
	if err != nil {
		closeStorage()
		return nil, err
	}

	return &adminEnv{
		storage:  st,
		executor: shared.NewExecutor(st.tx, dispatcher, log),
		cleanup: func() {
			closeDispatcher()
			closeStorage()
			_ = log.Sync()
		},
	}, nil
}

func newCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "分类管理",
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "创建分类",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newAdminEnv()
			if err != nil {
				return err
			}
			defer env.cleanup()

			svc := category.NewService(env.storage.categories, env.storage.users)
			result, err := appcategory.NewCreateCategoryUseCase(env.executor, svc).Execute(cmd.Context(), appcategory.CreateCategoryRequest{
				Actor: cliActor,
				Name:  name,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "分类已创建: id=%d name=%s\n", result.ID, result.Name)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "分类名")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "用户管理",
	}

	var req appuser.RegisterRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "创建用户（密码从终端读取，不回显）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			req.Password = password

			env, err := newAdminEnv()
			if err != nil {
				return err
			}
			defer env.cleanup()

			return createUser(cmd.Context(), cmd, env, req)
		},
	}
	create.Flags().StringVar(&req.FirstName, "first-name", "", "名")
	create.Flags().StringVar(&req.LastName, "last-name", "", "姓")
	create.Flags().StringVar(&req.Username, "username", "", "用户名")
	create.Flags().StringVar(&req.Email, "email", "", "邮箱")
	create.Flags().StringVar(&req.Role, "role", "CUSTOMER", "角色（EMPLOYEE | CUSTOMER）")
	for _, f := range []string{"first-name", "last-name", "username", "email"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}

func createUser(ctx context.Context, cmd *cobra.Command, env *adminEnv, req appuser.RegisterRequest) error {
	svc := user.NewService(env.storage.users)
	result, err := appuser.NewRegisterUseCase(env.executor, svc).Execute(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "用户已创建: id=%d username=%s role=%s\n", result.ID, result.Username, result.Role)
	return nil
}

// readPassword 从终端读取两次密码并比较
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("请在交互式终端中运行以输入密码")
	}

	read := func(prompt string) (string, error) {
		fmt.Fprint(cmd.OutOrStdout(), prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	password, err := read("密码: ")
	if err != nil {
		return "", err
	}
	confirm, err := read("确认密码: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("两次输入的密码不一致")
	}
	return password, nil
}
