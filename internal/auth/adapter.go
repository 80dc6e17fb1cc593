package auth

import (
	"context"
	"sync"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
)

// UnsubscribeFunc はセッション状態の購読を解除します
// いつ呼んでも安全で、複数回呼んでも副作用はありません
type UnsubscribeFunc func()

// Adapter は現在のセッション状態を保持するIDプロバイダアダプタです
// サインイン・サインアウトのたびに購読者へ通知します
// 真実の状態はプロバイダ側にあり、ここはその写しを1つ持つだけです
type Adapter struct {
	provider       Provider
	fallbackAvatar string

	mu      sync.Mutex
	current *models.User
	subs    map[int]*sessionSub
	nextId  int
}

type sessionSub struct {
	mu     sync.Mutex
	closed bool
	fn     func(*models.User)
}

func (s *sessionSub) deliver(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(u)
}

func NewAdapter(provider Provider, fallbackAvatar string) *Adapter {
	return &Adapter{
		provider:       provider,
		fallbackAvatar: fallbackAvatar,
		subs:           make(map[int]*sessionSub),
	}
}

// CurrentUser は現在サインイン中のユーザーを返します。未サインインならnilです
func (a *Adapter) CurrentUser() *models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	u := *a.current
	return &u
}

// SignIn はプロバイダのIDトークンを検証しセッションを開始します
// 表示名が欠けた成功応答はErrMissingProfileFieldとして失敗させ、ユーザーは設定しません
func (a *Adapter) SignIn(ctx context.Context, rawToken string) (models.User, error) {
	profile, err := a.provider.Verify(ctx, rawToken)
	if err != nil {
		return models.User{}, err
	}
	user, err := ResolveUser(profile, a.fallbackAvatar)
	if err != nil {
		return models.User{}, err
	}

	a.mu.Lock()
	a.current = &user
	subs := a.snapshotSubs()
	a.mu.Unlock()

	for _, s := range subs {
		u := user
		s.deliver(&u)
	}
	return user, nil
}

// SignOut はセッションを破棄し購読者へnilを通知します
func (a *Adapter) SignOut() {
	a.mu.Lock()
	a.current = nil
	subs := a.snapshotSubs()
	a.mu.Unlock()

	for _, s := range subs {
		s.deliver(nil)
	}
}

// Subscribe はセッション状態の変化（サインイン・サインアウト）を購読します
// 解除後はコールバックが呼ばれないことを保証します
func (a *Adapter) Subscribe(fn func(*models.User)) UnsubscribeFunc {
	sub := &sessionSub{fn: fn}

	a.mu.Lock()
	id := a.nextId
	a.nextId++
	a.subs[id] = sub
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()

			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

// snapshotSubs は購読者一覧を写し取ります。呼び出し側がmuを保持していること
// 通知はロックを外してから行うため、コールバック内からの再入も安全です
func (a *Adapter) snapshotSubs() []*sessionSub {
	out := make([]*sessionSub, 0, len(a.subs))
	for _, s := range a.subs {
		out = append(out, s)
	}
	return out
}
