// Package main 是 QuickPlan 客户端核心的命令行驱动。
//
// 用法:
//
//	quickplan [-config path] [-env path] <command> [flags]
//
// command 为 send-code、login-phone、login-email、register-email、logout、
// whoami、schedules、add-schedule、chat 之一。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"quickplan-go/internal/api"
	"quickplan-go/internal/config"
	"quickplan-go/internal/i18n"
	"quickplan-go/internal/model"
	"quickplan-go/internal/repository"
	"quickplan-go/internal/service"
	"quickplan-go/pkg/log"
	"quickplan-go/pkg/tika"

	"github.com/joho/godotenv"
)

// app 持有一次命令执行所需的全部组件
type app struct {
	cfg       config.Config
	store     *repository.CredentialStore
	client    *api.Client
	auth      service.AuthService
	schedules *repository.ScheduleRepository
	loc       *i18n.Localizer
}

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	envFile := flag.String("env", ".env", ".env 文件路径")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load(*envFile)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = a.run(ctx, flag.Arg(0), flag.Args()[1:])
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "错误:", a.explain(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `用法: quickplan [-config path] [-env path] <command> [flags]

命令:
  send-code       -phone 13800138000
  login-phone     -phone 13800138000 -code 123456
  login-email     -email a@b.com -password secret
  register-email  -email a@b.com -password secret [-nickname 昵称]
  logout
  whoami
  schedules       [-from 2024-01-01 -to 2024-01-31]
  add-schedule    -title 标题 -date 2024-01-01 -time 09:00 [-location 地点]
  chat            -message 内容 | -image 图片路径 [-conversation id]
`)
}

func newApp(ctx context.Context, cfg config.Config) (*app, func(), error) {
	kv, err := repository.OpenKVStore(ctx, cfg.Credentials)
	if err != nil {
		return nil, nil, fmt.Errorf("打开凭证存储失败: %w", err)
	}
	client, err := api.NewClientFromConfig(cfg.Client, nil)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	loc, err := i18n.NewLocalizer(cfg.Client.Language)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}

	store := repository.NewCredentialStore(kv)
	auth := service.NewAuthService(ctx, client, store, loc, service.AuthOptions{
		CooldownTick: cfg.Client.CooldownTick,
		RefreshSkew:  cfg.Client.RefreshSkew,
	})
	a := &app{
		cfg:       cfg,
		store:     store,
		client:    client,
		auth:      auth,
		schedules: repository.NewScheduleRepository(client, store),
		loc:       loc,
	}
	cleanup := func() {
		auth.Close()
		if err := kv.Close(); err != nil {
			log.Warnf("关闭凭证存储失败: %v", err)
		}
	}
	return a, cleanup, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	switch command {
	case "send-code":
		phone := fs.String("phone", "", "手机号")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := a.auth.SendVerificationCode(ctx, *phone); err != nil {
			return err
		}
		fmt.Println(a.auth.State().Notice.Get())
		return nil

	case "login-phone":
		phone := fs.String("phone", "", "手机号")
		code := fs.String("code", "", "验证码")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.afterLogin(a.auth.PhoneLogin(ctx, *phone, *code))

	case "login-email":
		email := fs.String("email", "", "邮箱")
		password := fs.String("password", "", "密码")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.afterLogin(a.auth.EmailLogin(ctx, *email, *password))

	case "register-email":
		email := fs.String("email", "", "邮箱")
		password := fs.String("password", "", "密码")
		nickname := fs.String("nickname", "", "昵称")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var nick *string
		if *nickname != "" {
			nick = nickname
		}
		return a.afterLogin(a.auth.EmailRegister(ctx, *email, *password, *password, nick))

	case "logout":
		a.auth.Logout(ctx)
		fmt.Println("已退出登录")
		return nil

	case "whoami":
		if !a.auth.State().LoggedIn.Get() {
			fmt.Println("未登录")
			return nil
		}
		if err := a.auth.EnsureFreshToken(ctx); err != nil {
			return err
		}
		if err := a.auth.FetchProfile(ctx); err != nil {
			return err
		}
		printProfile(a.auth.State().Profile.Get())
		return nil

	case "schedules":
		from := fs.String("from", "", "开始日期 YYYY-MM-DD")
		to := fs.String("to", "", "结束日期 YYYY-MM-DD")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.listSchedules(ctx, *from, *to)

	case "add-schedule":
		title := fs.String("title", "", "标题")
		date := fs.String("date", model.FormatDate(time.Now()), "日期 YYYY-MM-DD")
		at := fs.String("time", "09:00", "时间 HH:MM")
		location := fs.String("location", "", "地点")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.addSchedule(ctx, *title, *date, *at, *location)

	case "chat":
		message := fs.String("message", "", "消息内容")
		image := fs.String("image", "", "识别图片中的文字并创建日程")
		conversation := fs.String("conversation", "", "继续已有对话")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.chat(ctx, *message, *image, *conversation)

	default:
		usage()
		return fmt.Errorf("未知命令 %q", command)
	}
}

func (a *app) afterLogin(err error) error {
	if err != nil {
		return err
	}
	printProfile(a.auth.State().Profile.Get())
	return nil
}

func (a *app) listSchedules(ctx context.Context, from, to string) error {
	var (
		list []model.Schedule
		err  error
	)
	if from == "" && to == "" {
		if err = a.schedules.Refresh(ctx); err != nil {
			return err
		}
		list = a.schedules.Schedules()
	} else {
		start, perr := model.ParseDate(from)
		if perr != nil {
			return perr
		}
		end := start
		if to != "" {
			if end, perr = model.ParseDate(to); perr != nil {
				return perr
			}
		}
		if list, err = a.schedules.ByDateRange(ctx, start, end); err != nil {
			return err
		}
	}

	if len(list) == 0 {
		fmt.Println("没有日程")
		return nil
	}
	for _, s := range list {
		line := fmt.Sprintf("%s %s  %s", model.FormatDate(s.Date), s.Time.String()[:5], s.Title)
		if s.Location != nil && *s.Location != "" {
			line += "  @" + *s.Location
		}
		fmt.Println(line)
	}
	return nil
}

func (a *app) addSchedule(ctx context.Context, title, date, at, location string) error {
	day, err := model.ParseDate(date)
	if err != nil {
		return err
	}
	tod, err := model.ParseTimeOfDay(at)
	if err != nil {
		return err
	}
	ns := repository.NewSchedule{Title: title, Date: day, Time: tod}
	if location != "" {
		ns.Location = &location
	}
	created, err := a.schedules.Add(ctx, ns)
	if err != nil {
		return err
	}
	fmt.Printf("已创建日程 %s\n", created.RemoteID())
	return nil
}

func (a *app) chat(ctx context.Context, message, imagePath, conversationID string) error {
	var recognizer service.Recognizer
	if a.cfg.Tika.ServerURL != "" {
		recognizer = tika.NewClient(a.cfg.Tika)
	}
	chat := service.NewChatService(a.client, a.store, recognizer, a.loc)

	if conversationID != "" {
		if err := chat.LoadConversation(ctx, conversationID); err != nil {
			return err
		}
	}

	switch {
	case imagePath != "":
		f, err := os.Open(imagePath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := chat.ProcessOCRImage(ctx, f, filepath.Base(imagePath)); err != nil {
			return err
		}
	case strings.TrimSpace(message) != "":
		if err := chat.SendMessage(ctx, message); err != nil {
			return err
		}
	default:
		return errors.New("需要 -message 或 -image")
	}

	for _, m := range chat.State().Messages.Get() {
		who := "助手"
		if m.IsUser() {
			who = "我"
		}
		fmt.Printf("[%s] %s\n", who, m.Text)
	}
	fmt.Printf("对话 id: %s\n", chat.State().ConversationID.Get())
	return nil
}

// explain 优先使用管理器写入的错误文案
func (a *app) explain(err error) string {
	if msg := a.auth.State().ErrorMessage.Get(); msg != "" {
		return msg
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return a.loc.Get(validationErr.MsgID, nil)
	}
	return err.Error()
}

func printProfile(p *model.UserProfile) {
	if p == nil {
		fmt.Println("未登录")
		return
	}
	fmt.Printf("用户 id: %s\n", p.UserID)
	if p.Nickname != nil {
		fmt.Printf("昵称: %s\n", *p.Nickname)
	}
	if p.Phone != nil {
		fmt.Printf("手机号: %s\n", *p.Phone)
	}
	if p.Email != nil {
		fmt.Printf("邮箱: %s\n", *p.Email)
	}
	fmt.Printf("登录方式: %s\n", p.LoginType)
}
