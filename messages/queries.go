package messages

const messageFields = `
      id
      boardId
      senderId
      message
      files
      seenBy
      createdAt
      updatedAt`

const listByBoardQuery = `query QueryTeamMessagesByBoardIdIndex($boardId: String!, $first: Int, $after: String) {
  queryTeamMessagesByBoardIdIndex(boardId: $boardId, first: $first, after: $after) {
    items {` + messageFields + `
    }
    nextToken
  }
}`

const getQuery = `query GetTeamMessage($id: ID!) {
  getTeamMessage(id: $id) {` + messageFields + `
  }
}`

const createMutation = `mutation CreateTeamMessage($input: CreateTeamMessageInput!) {
  createTeamMessage(input: $input) {` + messageFields + `
  }
}`

const updateMutation = `mutation UpdateTeamMessage($input: UpdateTeamMessageInput!) {
  updateTeamMessage(input: $input) {` + messageFields + `
  }
}`

const deleteMutation = `mutation DeleteTeamMessage($input: DeleteTeamMessageInput!) {
  deleteTeamMessage(input: $input) {` + messageFields + `
  }
}`

const onCreateSubscription = `subscription OnCreateTeamMessage {
  onCreateTeamMessage {` + messageFields + `
  }
}`
