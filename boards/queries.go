package boards

const boardInfoFields = `
        name
        description
        ownerId
        memberCount
        createdAt
        updatedAt
        inviteCode
        coverImage
        boardImage
        boardStatus
        boardType`

const myBoardsQuery = `query GetMyBoards($userId: String!) {
  getMyBoards(userId: $userId) {
    data {
      id
      role
      status
      createdAt
      updatedAt
      boardId
      boardInfo {` + boardInfoFields + `
      }
    }
    success
    message
  }
}`

const boardMembersQuery = `query GetBoardMembers($boardId: ID!) {
  getBoardMembers(boardId: $boardId) {
    id
    boardId
    email
    role
    status
    agreeTerms
    name
    avatar
    createdAt
    updatedAt
  }
}`

const boardDetailsQuery = `query GetBoardDetails($boardId: ID!, $userId: String!) {
  getBoardDetails(boardId: $boardId, userId: $userId) {` + boardInfoFields + `
  }
}`

const boardsByIDQuery = `query GetBoardsById($boardId: ID!, $boardType: BoardType!) {
  getBoardsById(boardId: $boardId, boardType: $boardType) {
    data {
      id
      name
      slug
      description
      boardType
      boardStatus
      boardPriority
      boardCategory
      boardSubCategory
      boardTags
      boardLabels
      poolId
      ownerId
      memberCount
      memberLimit
      inviteCode
      coverImage
      boardImage
      termsAndConditions
      createdAt
      updatedAt
    }
    success
    message
  }
}`
