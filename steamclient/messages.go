// ABOUTME: Steam messages the adapter reads or writes itself
// ABOUTME: Playing-session state, the logon response hint and the games-played request

package steamclient

import (
	"github.com/Philipp15b/go-steam/v3/protocol"
	"github.com/Philipp15b/go-steam/v3/protocol/protobuf"
	"github.com/Philipp15b/go-steam/v3/protocol/steamlang"
	"google.golang.org/protobuf/proto"

	"github.com/markalston/steam-hour-farmer/models"
)

// eMsgClientPlayingSessionState carries CMsgClientPlayingSessionState.
const eMsgClientPlayingSessionState steamlang.EMsg = 9600

// nonSteamGameID is the game ID Steam shows for a shortcut (non-Steam)
// game; the title travels in game_extra_info.
const nonSteamGameID uint64 = 15190414816125648896

// readPlayingSessionState decodes whether another session holds the
// account's play rights.
func readPlayingSessionState(p *protocol.Packet) models.PlayingStateEvent {
	msg := new(protobuf.CMsgClientPlayingSessionState)
	p.ReadProtoMsg(msg)
	return models.PlayingStateEvent{
		Blocked: msg.GetPlayingBlocked(),
		AppID:   msg.GetPlayingApp(),
	}
}

// readLogOnResponse returns the logon result and, for email Steam Guard,
// the domain the code was sent to. go-steam's LogOnFailedEvent drops the
// domain.
func readLogOnResponse(p *protocol.Packet) (steamlang.EResult, string) {
	msg := new(protobuf.CMsgClientLogonResponse)
	p.ReadProtoMsg(msg)
	return steamlang.EResult(msg.GetEresult()), msg.GetEmailDomain()
}

func gamesPlayedMsg(games []models.Game) *protocol.ClientMsgProtobuf {
	return protocol.NewClientMsgProtobuf(steamlang.EMsg_ClientGamesPlayed, &protobuf.CMsgClientGamesPlayed{
		GamesPlayed: gamesPlayed(games),
	})
}

func gamesPlayed(games []models.Game) []*protobuf.CMsgClientGamesPlayed_GamePlayed {
	played := make([]*protobuf.CMsgClientGamesPlayed_GamePlayed, 0, len(games))
	for _, g := range games {
		if g.IsApp() {
			played = append(played, &protobuf.CMsgClientGamesPlayed_GamePlayed{
				GameId: proto.Uint64(uint64(g.AppID)),
			})
			continue
		}
		played = append(played, &protobuf.CMsgClientGamesPlayed_GamePlayed{
			GameId:        proto.Uint64(nonSteamGameID),
			GameExtraInfo: proto.String(g.Title),
		})
	}
	return played
}
